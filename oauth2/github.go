package oauth2

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GithubOAuth2 authenticates against GitHub. The authoritative email is the
// "email" claim of /user; GitHub omits it for users whose email visibility
// is private, in which case the primary verified address from /user/emails
// is backfilled. The "login" handle is never used as an email.
type GithubOAuth2 struct {
	*BaseOAuth2

	// UserInfoURL and EmailsURL can be overridden for testing
	UserInfoURL string
	EmailsURL   string
}

func NewGithubOAuth2(clientId string, clientSecret string, callbackUrl string, handleUser HandleUserFunc) *GithubOAuth2 {
	if clientId == "" {
		clientId = strings.TrimSpace(os.Getenv("OAUTH2_GITHUB_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("OAUTH2_GITHUB_CLIENT_SECRET"))
	}
	if callbackUrl == "" {
		callbackUrl = strings.TrimSpace(os.Getenv("OAUTH2_GITHUB_CALLBACK_URL"))
	}

	out := GithubOAuth2{
		BaseOAuth2:  NewBaseOAuth2(clientId, clientSecret, callbackUrl, handleUser),
		UserInfoURL: "https://api.github.com/user",
		EmailsURL:   "https://api.github.com/user/emails",
	}
	out.oauthConfig.Endpoint = github.Endpoint
	out.oauthConfig.Scopes = []string{
		"read:user", "user:email",
	}
	out.mux.HandleFunc("/callback/", out.handleCallback)
	return &out
}

func (g *GithubOAuth2) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !checkStateCookie(w, r) {
		return
	}

	code := r.FormValue("code")
	token, err := g.oauthConfig.Exchange(g.ExchangeContext(), code)
	if err == nil {
		var userInfo map[string]any
		userInfo, err = g.getUserData(token)
		if err == nil {
			g.HandleUser("oauth", "github", token, userInfo, w, r)
			return
		}
	}
	slog.Info("github auth failed, redirecting", "err", err)
	http.Redirect(w, r, g.AuthFailureUrl, http.StatusTemporaryRedirect)
}

func (g *GithubOAuth2) getUserData(token *oauth2.Token) (map[string]any, error) {
	userInfo, err := g.getJSON(g.UserInfoURL, token)
	if err != nil {
		return nil, err
	}

	if email, _ := userInfo["email"].(string); email == "" {
		// email hidden on the public profile, ask the emails endpoint
		if primary, err := g.getPrimaryEmail(token); err != nil {
			slog.Info("could not fetch github emails", "err", err)
		} else if primary != "" {
			userInfo["email"] = primary
		}
	}
	return userInfo, nil
}

func (g *GithubOAuth2) getPrimaryEmail(token *oauth2.Token) (string, error) {
	req, err := http.NewRequest("GET", g.EmailsURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	response, err := g.getHTTPClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("failed getting emails from github: %w", err)
	}
	defer response.Body.Close()

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return "", err
	}
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.Unmarshal(contents, &emails); err != nil {
		return "", fmt.Errorf("failed to parse emails response: %w", err)
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func (g *GithubOAuth2) getJSON(url string, token *oauth2.Token) (map[string]any, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	response, err := g.getHTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info from github: %w", err)
	}
	defer response.Body.Close()

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed read response: %w", err)
	}
	var userInfo map[string]any
	if err := json.Unmarshal(contents, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	return userInfo, nil
}
