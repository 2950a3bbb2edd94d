package authgate

import (
	"github.com/google/uuid"
)

// Credential kinds. An account holds exactly one credential, set at creation.
const (
	CredentialKindPassword = "password" // local account, Value is a bcrypt hash
	CredentialKindProvider = "provider" // federated account, Value names the provider
)

// Credential is the proof material associated with an Account. For local
// accounts it is a password hash; for accounts created through an OAuth
// provider it is a non-secret marker naming that provider.
type Credential struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// PasswordCredential wraps a password hash produced by a PasswordHasher
func PasswordCredential(hash string) Credential {
	return Credential{Kind: CredentialKindPassword, Value: hash}
}

// ProviderCredential marks an account as created via the named provider.
// Such accounts have no local password until one is explicitly added.
func ProviderCredential(provider string) Credential {
	return Credential{Kind: CredentialKindProvider, Value: provider}
}

// Account is the canonical stored identity, unique per email
type Account struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Credential Credential `json:"credential"`
}

// AccountStore is the query contract the core consumes. Implementations own
// the uniqueness invariant on email: CreateAccount must fail with
// ErrEmailTaken when the email is already stored, even under concurrent
// creates for the same address.
type AccountStore interface {
	// GetAccountByID retrieves an account by its id, ErrAccountNotFound if absent
	GetAccountByID(id string) (*Account, error)

	// GetAccountByEmail retrieves an account by exact email match,
	// ErrAccountNotFound if absent
	GetAccountByEmail(email string) (*Account, error)

	// CreateAccount stores a new account for the email with the given
	// credential and returns it with a fresh id. Returns ErrEmailTaken
	// if the email is already registered.
	CreateAccount(email string, cred Credential) (*Account, error)
}

// NewAccountID generates an id for a new account
func NewAccountID() string {
	return uuid.NewString()
}
