package authgate

import (
	"errors"
	"fmt"
	"log/slog"
)

// Supported federation providers
const (
	ProviderGoogle   = "google"
	ProviderGithub   = "github"
	ProviderFacebook = "facebook"
)

// EmailMapping declares, per provider, which profile field carries the
// canonical email. The mapping is an explicit policy table rather than an
// incidental code path: a provider's login handle or display name is never
// an acceptable substitute for its email claim.
type EmailMapping map[string]string

// DefaultEmailMapping covers the built-in providers. All three surface the
// address under "email" in the profiles our oauth2 package produces (the
// GitHub callback backfills it from /user/emails when the primary profile
// omits it).
func DefaultEmailMapping() EmailMapping {
	return EmailMapping{
		ProviderGoogle:   "email",
		ProviderGithub:   "email",
		ProviderFacebook: "email",
	}
}

// CanonicalEmail extracts the authoritative email from a provider profile.
// A provider missing from the table, or a profile missing the declared
// field, is a hard rejection.
func (m EmailMapping) CanonicalEmail(provider string, profile map[string]any) (string, error) {
	field, ok := m[provider]
	if !ok {
		return "", fmt.Errorf("no email mapping declared for provider %q: %w", provider, ErrNoEmailInProfile)
	}
	email, _ := profile[field].(string)
	if email == "" {
		return "", fmt.Errorf("%s profile field %q empty or missing: %w", provider, field, ErrNoEmailInProfile)
	}
	return email, nil
}

// Resolver converts an external provider's profile into a canonical Account,
// finding an existing account by email or creating one on first sight.
type Resolver struct {
	Store   AccountStore
	Mapping EmailMapping
}

func NewResolver(store AccountStore) *Resolver {
	return &Resolver{Store: store, Mapping: DefaultEmailMapping()}
}

// Resolve finds or creates the account for a provider profile.
//
// An existing account is returned unchanged whatever its credential kind:
// this is the cross-provider identity merge, keyed purely on email equality.
// (Email spoofing by a provider is a trust boundary the resolver does not
// itself defend.) A previously unseen email gets a new account whose
// credential is a marker naming the provider.
//
// Resolve is idempotent: a concurrent create losing to ErrEmailTaken
// re-reads and returns the winner's account.
func (rs *Resolver) Resolve(provider string, profile map[string]any) (*Account, error) {
	email, err := rs.mapping().CanonicalEmail(provider, profile)
	if err != nil {
		return nil, err
	}

	account, err := rs.Store.GetAccountByEmail(email)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}

	account, err = rs.Store.CreateAccount(email, ProviderCredential(provider))
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			// lost a create race, the account exists now
			slog.Info("concurrent account creation, reusing existing", "provider", provider)
			return rs.Store.GetAccountByEmail(email)
		}
		return nil, fmt.Errorf("account creation failed: %w", err)
	}
	return account, nil
}

func (rs *Resolver) mapping() EmailMapping {
	if rs.Mapping != nil {
		return rs.Mapping
	}
	return DefaultEmailMapping()
}
