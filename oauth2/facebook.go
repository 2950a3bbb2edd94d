package oauth2

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

// FacebookOAuth2 authenticates against Facebook via the Graph API. The
// authoritative email field is "email"; Facebook omits it for accounts
// registered by phone number, which the resolver rejects downstream.
type FacebookOAuth2 struct {
	*BaseOAuth2

	// UserInfoURL can be overridden for testing
	UserInfoURL string
}

func NewFacebookOAuth2(clientId string, clientSecret string, callbackUrl string, handleUser HandleUserFunc) *FacebookOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_FACEBOOK_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_FACEBOOK_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_FACEBOOK_CALLBACK_URL")
	}

	out := FacebookOAuth2{
		BaseOAuth2:  NewBaseOAuth2(clientId, clientSecret, callbackUrl, handleUser),
		UserInfoURL: "https://graph.facebook.com/me",
	}
	out.oauthConfig.Endpoint = facebook.Endpoint
	out.oauthConfig.Scopes = []string{
		"email", "public_profile",
	}
	out.mux.HandleFunc("/callback/", out.handleCallback)
	return &out
}

func (f *FacebookOAuth2) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !checkStateCookie(w, r) {
		return
	}

	code := r.FormValue("code")
	token, err := f.oauthConfig.Exchange(f.ExchangeContext(), code)
	if err == nil {
		var userInfo map[string]any
		userInfo, err = f.getUserData(token)
		if err == nil {
			f.HandleUser("oauth", "facebook", token, userInfo, w, r)
			return
		}
	}
	slog.Info("facebook auth failed, redirecting", "err", err)
	http.Redirect(w, r, f.AuthFailureUrl, http.StatusTemporaryRedirect)
}

func (f *FacebookOAuth2) getUserData(token *oauth2.Token) (map[string]any, error) {
	u := fmt.Sprintf("%s?fields=id,name,email&access_token=%s", f.UserInfoURL, url.QueryEscape(token.AccessToken))
	response, err := f.getHTTPClient().Get(u)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info from facebook: %w", err)
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
