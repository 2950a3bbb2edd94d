package oauth2_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	agoauth "github.com/tembold/authgate/oauth2"
	oauth2lib "golang.org/x/oauth2"
)

// mockProvider stands in for an OAuth provider: a /token endpoint for the
// code exchange and /userinfo + /emails endpoints for profile data
type mockProvider struct {
	server *httptest.Server

	userInfoResponse map[string]any
	emailsResponse   []map[string]any
	tokenError       bool
}

func newMockProvider() *mockProvider {
	mock := &mockProvider{
		userInfoResponse: map[string]any{
			"id":    "12345",
			"email": "testuser@example.com",
			"name":  "Test User",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if mock.tokenError {
			http.Error(w, "token exchange failed", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "mock_access_token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mock.userInfoResponse)
	})
	mux.HandleFunc("/emails", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mock.emailsResponse)
	})

	mock.server = httptest.NewServer(mux)
	return mock
}

func (m *mockProvider) Close() { m.server.Close() }

func TestOauthRedirector(t *testing.T) {
	config := &oauth2lib.Config{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURL:  "http://localhost:8080/callback",
		Scopes:       []string{"email", "profile"},
		Endpoint: oauth2lib.Endpoint{
			AuthURL:  "https://provider.example.com/auth",
			TokenURL: "https://provider.example.com/token",
		},
	}

	redirector := agoauth.OauthRedirector(config)

	req := httptest.NewRequest(http.MethodGet, "/?callbackURL=/after", nil)
	rr := httptest.NewRecorder()
	redirector(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("expected status %d, got %d", http.StatusFound, rr.Code)
	}
	location := rr.Header().Get("Location")
	if !strings.HasPrefix(location, "https://provider.example.com/auth") {
		t.Fatalf("expected redirect to provider, got: %s", location)
	}

	parsedURL, err := url.Parse(location)
	if err != nil {
		t.Fatalf("failed to parse redirect URL: %v", err)
	}
	query := parsedURL.Query()
	if query.Get("client_id") != "test-client-id" {
		t.Errorf("expected client_id in URL")
	}
	if query.Get("state") == "" {
		t.Errorf("expected state parameter in URL")
	}

	var stateCookie, callbackCookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		switch c.Name {
		case "oauthstate":
			stateCookie = c
		case "oauthCallbackURL":
			callbackCookie = c
		}
	}
	if stateCookie == nil || stateCookie.Value != query.Get("state") {
		t.Errorf("state cookie does not match state parameter")
	}
	if callbackCookie == nil || callbackCookie.Value != "/after" {
		t.Errorf("callback URL cookie not recorded")
	}
}

// callbackRequest builds a provider callback request with a matching state
// cookie, the way a browser returns from the consent page
func callbackRequest(state string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/callback/?state="+state+"&code=test-code", nil)
	req.AddCookie(&http.Cookie{Name: "oauthstate", Value: state})
	return req
}

func TestGoogleCallback(t *testing.T) {
	mock := newMockProvider()
	defer mock.Close()

	var gotProvider string
	var gotProfile map[string]any
	handleUser := func(authtype, provider string, token *oauth2lib.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
		gotProvider = provider
		gotProfile = userInfo
		w.WriteHeader(http.StatusOK)
	}

	g := agoauth.NewGoogleOAuth2("cid", "csecret", "http://localhost/callback", handleUser)
	g.Config().Endpoint = oauth2lib.Endpoint{
		AuthURL:  mock.server.URL + "/auth",
		TokenURL: mock.server.URL + "/token",
	}
	g.UserInfoURL = mock.server.URL + "/userinfo"

	rr := httptest.NewRecorder()
	g.ServeHTTP(rr, callbackRequest("state123"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected callback success, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotProvider != "google" {
		t.Errorf("provider = %q, want google", gotProvider)
	}
	if email, _ := gotProfile["email"].(string); email != "testuser@example.com" {
		t.Errorf("profile email = %q", email)
	}
}

func TestCallbackStateMismatch(t *testing.T) {
	g := agoauth.NewGoogleOAuth2("cid", "csecret", "http://localhost/callback", nil)

	req := httptest.NewRequest(http.MethodGet, "/callback/?state=evil&code=c", nil)
	req.AddCookie(&http.Cookie{Name: "oauthstate", Value: "good"})
	rr := httptest.NewRecorder()
	g.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 on state mismatch, got %d", rr.Code)
	}
}

func TestCallbackExchangeFailure(t *testing.T) {
	mock := newMockProvider()
	defer mock.Close()
	mock.tokenError = true

	g := agoauth.NewGoogleOAuth2("cid", "csecret", "http://localhost/callback", nil)
	g.Config().Endpoint = oauth2lib.Endpoint{
		AuthURL:  mock.server.URL + "/auth",
		TokenURL: mock.server.URL + "/token",
	}
	g.AuthFailureUrl = "/login"

	rr := httptest.NewRecorder()
	g.ServeHTTP(rr, callbackRequest("state123"))

	if rr.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected failure redirect, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Errorf("expected redirect to /login, got %q", loc)
	}
}

func TestGithubEmailBackfill(t *testing.T) {
	mock := newMockProvider()
	defer mock.Close()

	// profile with private email: the /user payload carries login but no email
	mock.userInfoResponse = map[string]any{
		"id":    float64(99),
		"login": "octocat",
	}
	mock.emailsResponse = []map[string]any{
		{"email": "secondary@example.com", "primary": false, "verified": true},
		{"email": "primary@example.com", "primary": true, "verified": true},
	}

	var gotProfile map[string]any
	handleUser := func(authtype, provider string, token *oauth2lib.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
		gotProfile = userInfo
		w.WriteHeader(http.StatusOK)
	}

	g := agoauth.NewGithubOAuth2("cid", "csecret", "http://localhost/callback", handleUser)
	g.Config().Endpoint = oauth2lib.Endpoint{
		AuthURL:  mock.server.URL + "/auth",
		TokenURL: mock.server.URL + "/token",
	}
	g.UserInfoURL = mock.server.URL + "/userinfo"
	g.EmailsURL = mock.server.URL + "/emails"

	rr := httptest.NewRecorder()
	g.ServeHTTP(rr, callbackRequest("state456"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected callback success, got %d", rr.Code)
	}
	if email, _ := gotProfile["email"].(string); email != "primary@example.com" {
		t.Errorf("expected primary verified email backfilled, got %q", email)
	}
}

func TestFacebookCallback(t *testing.T) {
	mock := newMockProvider()
	defer mock.Close()
	mock.userInfoResponse = map[string]any{
		"id":    "fb-1",
		"name":  "Test User",
		"email": "fbuser@example.com",
	}

	var gotProvider string
	var gotProfile map[string]any
	handleUser := func(authtype, provider string, token *oauth2lib.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
		gotProvider = provider
		gotProfile = userInfo
		w.WriteHeader(http.StatusOK)
	}

	f := agoauth.NewFacebookOAuth2("cid", "csecret", "http://localhost/callback", handleUser)
	f.Config().Endpoint = oauth2lib.Endpoint{
		AuthURL:  mock.server.URL + "/auth",
		TokenURL: mock.server.URL + "/token",
	}
	f.UserInfoURL = mock.server.URL + "/userinfo"

	rr := httptest.NewRecorder()
	f.ServeHTTP(rr, callbackRequest("state789"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected callback success, got %d", rr.Code)
	}
	if gotProvider != "facebook" {
		t.Errorf("provider = %q, want facebook", gotProvider)
	}
	if email, _ := gotProfile["email"].(string); email != "fbuser@example.com" {
		t.Errorf("profile email = %q", email)
	}
}
