package authgate

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
)

// Session key holding the logged-in account id. The account id is the ONLY
// thing serialized into a session; the full account (and in particular its
// credential) is re-fetched from the store on every request.
const sessionKeyAccountID = "accountId"

// IdentitySession serializes an authenticated identity into a server-side
// session and reconstructs it on each request. It wraps an scs session
// manager, whose Lifetime/IdleTimeout govern session expiry.
type IdentitySession struct {
	*scs.SessionManager
	Store AccountStore
}

// NewIdentitySession creates a session manager with the given lifetime,
// backed by scs's default in-memory store. Swap in a persistent scs store
// via the embedded SessionManager for production deployments.
func NewIdentitySession(store AccountStore, lifetime time.Duration) *IdentitySession {
	sm := scs.New()
	sm.Lifetime = lifetime
	sm.IdleTimeout = lifetime / 2
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"
	return &IdentitySession{SessionManager: sm, Store: store}
}

// SignIn records the account in the request's session. The session token is
// renewed first to prevent session fixation.
func (s *IdentitySession) SignIn(r *http.Request, account *Account) error {
	if err := s.RenewToken(r.Context()); err != nil {
		return fmt.Errorf("failed to renew session token: %w", err)
	}
	s.Put(r.Context(), sessionKeyAccountID, account.ID)
	return nil
}

// AccountFromRequest reconstructs the authenticated account for the request,
// re-fetching it by id from the store. Returns (nil, nil) for an anonymous
// request or when the stored id no longer resolves; cached session payloads
// are never trusted for anything beyond the id.
func (s *IdentitySession) AccountFromRequest(r *http.Request) (*Account, error) {
	accountID := s.GetString(r.Context(), sessionKeyAccountID)
	if accountID == "" {
		return nil, nil
	}
	account, err := s.Store.GetAccountByID(accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return account, nil
}

// SignOut destroys the session. A later request presenting the old session
// id starts over as anonymous.
func (s *IdentitySession) SignOut(r *http.Request) error {
	return s.Destroy(r.Context())
}
