package stores

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	ag "github.com/tembold/authgate"
)

// fsAccount is the on-disk account record
type fsAccount struct {
	ID         string        `json:"id"`
	Email      string        `json:"email"`
	Credential ag.Credential `json:"credential"`
	CreatedAt  time.Time     `json:"created_at"`
}

// FSAccountStore stores accounts as JSON files: one file per account keyed
// by id, plus an email index entry pointing at the id. A process-local mutex
// makes create-with-unique-email atomic, so concurrent registrations for one
// address yield exactly one account. Suitable for development and tests.
type FSAccountStore struct {
	StoragePath string

	mu sync.Mutex
}

func NewFSAccountStore(storagePath string) *FSAccountStore {
	return &FSAccountStore{StoragePath: storagePath}
}

func (s *FSAccountStore) accountPath(id string) string {
	return filepath.Join(s.StoragePath, "accounts", id+".json")
}

// emailPath hashes the email for the index filename; addresses are not
// filesystem-safe
func (s *FSAccountStore) emailPath(email string) string {
	sum := sha256.Sum256([]byte(email))
	return filepath.Join(s.StoragePath, "emails", hex.EncodeToString(sum[:])+".json")
}

func (s *FSAccountStore) GetAccountByID(id string) (*ag.Account, error) {
	return s.readAccount(s.accountPath(id))
}

func (s *FSAccountStore) GetAccountByEmail(email string) (*ag.Account, error) {
	data, err := os.ReadFile(s.emailPath(email))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ag.ErrAccountNotFound
		}
		return nil, err
	}
	var entry struct {
		AccountID string `json:"account_id"`
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return s.readAccount(s.accountPath(entry.AccountID))
}

func (s *FSAccountStore) CreateAccount(email string, cred ag.Credential) (*ag.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	emailPath := s.emailPath(email)
	if _, err := os.Stat(emailPath); err == nil {
		return nil, ag.ErrEmailTaken
	}

	record := &fsAccount{
		ID:         ag.NewAccountID(),
		Email:      email,
		Credential: cred,
		CreatedAt:  time.Now(),
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, err
	}
	path := s.accountPath(record.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	if err := writeAtomicFile(path, data); err != nil {
		return nil, err
	}

	indexData, err := json.Marshal(map[string]string{"account_id": record.ID})
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(emailPath), 0755); err != nil {
		return nil, err
	}
	if err := writeAtomicFile(emailPath, indexData); err != nil {
		return nil, err
	}

	return record.toAccount(), nil
}

func (s *FSAccountStore) readAccount(path string) (*ag.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ag.ErrAccountNotFound
		}
		return nil, err
	}
	var record fsAccount
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("corrupt account record %s: %w", path, err)
	}
	return record.toAccount(), nil
}

func (a *fsAccount) toAccount() *ag.Account {
	return &ag.Account{ID: a.ID, Email: a.Email, Credential: a.Credential}
}
