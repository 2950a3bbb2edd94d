package authgate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

type accountIDContextKey struct{}

// Middleware extracts the authenticated account id for a request from the
// session or, failing that, the token cookie. When both proofs are invalid
// the request proceeds as anonymous; there is no lockout.
type Middleware struct {
	Session *IdentitySession
	Tokens  *TokenIssuer

	// TokenCookieName defaults to TokenCookieName ("token")
	CookieName string

	// LoginURL, when set, is where RequireAccount redirects anonymous
	// requests (with the original path in CallbackURLParam). Empty means 401.
	LoginURL         string
	CallbackURLParam string
}

func (m *Middleware) cookieName() string {
	if m.CookieName != "" {
		return m.CookieName
	}
	return TokenCookieName
}

func (m *Middleware) callbackParam() string {
	if m.CallbackURLParam != "" {
		return m.CallbackURLParam
	}
	return "callbackURL"
}

// AccountID returns the logged-in account id previously extracted into the
// request context, or "" for an anonymous request
func AccountID(r *http.Request) string {
	if v, ok := r.Context().Value(accountIDContextKey{}).(string); ok {
		return v
	}
	return ""
}

// resolveAccountID checks the session first, then falls back to the signed
// token cookie. Session and token are parallel proofs: either alone is
// sufficient, and each expires on its own schedule.
func (m *Middleware) resolveAccountID(r *http.Request) string {
	if m.Session != nil {
		account, err := m.Session.AccountFromRequest(r)
		if err != nil {
			slog.Warn("session lookup failed", "error", err)
		} else if account != nil {
			return account.ID
		}
	}

	if m.Tokens == nil {
		return ""
	}
	for _, cookie := range r.CookiesNamed(m.cookieName()) {
		if cookie.Value == "" {
			continue
		}
		accountID, err := m.Tokens.Verify(cookie.Value)
		if err == nil && accountID != "" {
			return accountID
		}
	}
	return ""
}

// ExtractAccount loads the account id (if any) into the request context
// without enforcing login
func (m *Middleware) ExtractAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, m.withAccountID(m.resolveAccountID(r), r))
	})
}

// RequireAccount enforces an authenticated account, redirecting to the login
// URL (or returning 401 when none is configured) otherwise
func (m *Middleware) RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID := m.resolveAccountID(r)
		if accountID == "" {
			if m.LoginURL != "" {
				original := strings.Replace(url.QueryEscape(r.URL.Path), "+", "%20", -1)
				target := fmt.Sprintf("%s?%s=%s", m.LoginURL, m.callbackParam(), original)
				http.Redirect(w, r, target, http.StatusFound)
			} else {
				http.Error(w, "Login required", http.StatusUnauthorized)
			}
			return
		}
		next.ServeHTTP(w, m.withAccountID(accountID, r))
	})
}

func (m *Middleware) withAccountID(accountID string, r *http.Request) *http.Request {
	ctx := context.WithValue(r.Context(), accountIDContextKey{}, accountID)
	return r.WithContext(ctx)
}
