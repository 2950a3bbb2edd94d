package authgate

import (
	"errors"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// AuthGate is the authentication orchestrator. It sequences verifier,
// resolver, session manager and token issuer per request, and owns the
// cookie surface (session cookie plus signed token cookie) that constitutes
// a completed login. Per request a visitor is anonymous until one of the
// flows below succeeds; failures demote the request back to anonymous and
// are never fatal to the process.
type AuthGate struct {
	mux *http.ServeMux

	// Optional name used as a prefix for defaults
	AppName string

	// Must be passed in
	Store    AccountStore
	Session  *IdentitySession
	Tokens   *TokenIssuer
	Resolver *Resolver

	// All the domains the token cookie is set on at login and cleared on
	// logout. The empty string (host-only cookie) is always included.
	CookieDomains []string

	// TokenCookie defaults to TokenCookieName
	TokenCookie string

	// Where logout and failed OAuth flows land. Defaults to "/login".
	LoginURL string

	// Where a completed login lands when no callback URL was recorded.
	// Defaults to "/".
	PostLoginURL string

	// How long the token cookie itself lives. Defaults to the issuer TTL,
	// which is independent of the session lifetime.
	TokenCookieMaxAge time.Duration
}

func New(appName string, store AccountStore, session *IdentitySession, tokens *TokenIssuer) *AuthGate {
	out := &AuthGate{
		AppName: appName,
		Store:   store,
		Session: session,
		Tokens:  tokens,
	}
	return out.EnsureDefaults()
}

func (a *AuthGate) EnsureDefaults() *AuthGate {
	if a.AppName == "" {
		a.AppName = "AuthGate"
	}
	if a.TokenCookie == "" {
		a.TokenCookie = TokenCookieName
	}
	if a.LoginURL == "" {
		a.LoginURL = "/login"
	}
	if a.PostLoginURL == "" {
		a.PostLoginURL = "/"
	}
	if a.Resolver == nil && a.Store != nil {
		a.Resolver = NewResolver(a.Store)
	}
	if a.TokenCookieMaxAge <= 0 && a.Tokens != nil {
		a.TokenCookieMaxAge = a.Tokens.ttl()
	}
	return a
}

// Handler returns the orchestrator's own endpoints: /logout and /whoami,
// plus anything mounted via AddAuth
func (a *AuthGate) Handler() http.Handler {
	return a.setupRoutes().mux
}

func (a *AuthGate) setupRoutes() *AuthGate {
	if a.mux == nil {
		a.mux = http.NewServeMux()
		a.mux.HandleFunc("/logout", a.onLogout)
		a.mux.HandleFunc("/whoami", a.HandleWhoAmI)
	}
	return a
}

// AddAuth mounts an authentication handler (a LocalAuth, an OAuth provider)
// under the given prefix. The handler receives paths below the prefix, so a
// provider mounted at /google sees /, /callback/ and so on.
func (a *AuthGate) AddAuth(prefix string, handler http.Handler) *AuthGate {
	a.setupRoutes()
	a.EnsureDefaults()
	prefix = strings.TrimSuffix(prefix, "/")
	a.mux.Handle(prefix+"/", http.StripPrefix(prefix, handler))

	// Requests without the trailing slash redirect to it, preserving any
	// parent prefix and the method (308, not 301, so POSTs survive)
	a.mux.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		origPath := r.RequestURI
		if idx := strings.Index(origPath, "?"); idx != -1 {
			origPath = origPath[:idx]
		}
		target := origPath + "/"
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
	})
	return a
}

// SaveAccountAndRedirect is the Authenticated transition: establish the
// session, set the token cookie, then redirect to the recorded callback URL
// (or the post-login default). It is the HandleUser callback for both local
// and OAuth flows.
func (a *AuthGate) SaveAccountAndRedirect(authtype, provider string, account *Account, w http.ResponseWriter, r *http.Request) {
	if err := a.setLoggedInAccount(account, w, r); err != nil {
		log.Println("error establishing login: ", err)
		http.Error(w, "Authentication failed", http.StatusInternalServerError)
		return
	}
	slog.Info("login complete", "authtype", authtype, "provider", provider, "accountId", account.ID)

	callbackURL := a.PostLoginURL
	if cookie, _ := r.Cookie("oauthCallbackURL"); cookie != nil && cookie.Value != "" {
		callbackURL = cookie.Value
	}
	// absolute URLs with a scheme are not followed; this is an open redirect otherwise
	if u, err := url.Parse(callbackURL); err != nil || u.Scheme != "" || u.Host != "" {
		callbackURL = a.PostLoginURL
	}
	// the callback cookie is single-use
	http.SetCookie(w, &http.Cookie{
		Name:   "oauthCallbackURL",
		Value:  "",
		Path:   "/",
		MaxAge: -1, Expires: time.Now(),
	})
	http.Redirect(w, r, callbackURL, http.StatusFound)
}

// HandleOAuthUser adapts a provider callback's raw profile into the
// Authenticated transition via the Resolver. Rejections (most notably a
// profile without a usable email) redirect to the login flow with nothing
// created; internal failures respond generically.
func (a *AuthGate) HandleOAuthUser(authtype, provider string, token *oauth2.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
	account, err := a.Resolver.Resolve(provider, userInfo)
	if err != nil {
		if errors.Is(err, ErrNoEmailInProfile) {
			slog.Warn("provider profile rejected", "provider", provider, "error", err)
			http.Redirect(w, r, a.LoginURL, http.StatusFound)
			return
		}
		log.Println("error resolving provider profile: ", err)
		http.Error(w, "Authentication failed", http.StatusInternalServerError)
		return
	}
	a.SaveAccountAndRedirect(authtype, provider, account, w, r)
}

// HandleWhoAmI is the token-checked endpoint: it verifies the token cookie
// alone (ignoring the session) and returns the embedded account id as plain
// text, or redirects to the login flow when the token is absent or invalid
func (a *AuthGate) HandleWhoAmI(w http.ResponseWriter, r *http.Request) {
	a.EnsureDefaults()
	for _, cookie := range r.CookiesNamed(a.TokenCookie) {
		if cookie.Value == "" {
			continue
		}
		accountID, err := a.Tokens.Verify(cookie.Value)
		if err == nil && accountID != "" {
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte(accountID))
			return
		}
		slog.Warn("rejecting token cookie", "error", err)
	}
	http.Redirect(w, r, a.LoginURL, http.StatusFound)
}

func (a *AuthGate) onLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.Session.SignOut(r); err != nil {
		slog.Warn("error destroying session", "error", err)
	}
	a.clearTokenCookies(w)

	toURL := r.URL.Query().Get("to")
	if toURL == "" {
		toURL = a.LoginURL
	}
	http.Redirect(w, r, toURL, http.StatusFound)
}

// setLoggedInAccount establishes both proofs of identity: the server-side
// session (account id only) and the signed token cookie. Their lifetimes are
// configured independently on purpose.
func (a *AuthGate) setLoggedInAccount(account *Account, w http.ResponseWriter, r *http.Request) error {
	a.EnsureDefaults()
	if err := a.Session.SignIn(r, account); err != nil {
		return err
	}

	tokenString, err := a.Tokens.Issue(account.ID)
	if err != nil {
		return err
	}
	maxAge := int(a.TokenCookieMaxAge.Seconds())
	for _, cookieDomain := range a.cookieDomains() {
		http.SetCookie(w, &http.Cookie{
			Name:     a.TokenCookie,
			Value:    tokenString,
			Domain:   cookieDomain,
			Path:     "/",
			HttpOnly: true,
			Expires:  time.Now().Add(a.TokenCookieMaxAge), MaxAge: maxAge,
		})
	}
	return nil
}

func (a *AuthGate) clearTokenCookies(w http.ResponseWriter) {
	for _, cookieDomain := range a.cookieDomains() {
		http.SetCookie(w, &http.Cookie{
			Name:    a.TokenCookie,
			Domain:  cookieDomain,
			Path:    "/",
			MaxAge:  -1,
			Expires: time.Now(),
		})
	}
}

func (a *AuthGate) cookieDomains() []string {
	domains := a.CookieDomains
	if !slices.Contains(domains, "") {
		domains = append(domains, "")
	}
	return domains
}
