package gorm

import (
	"errors"
	"strings"

	ag "github.com/tembold/authgate"
	"gorm.io/gorm"
)

// AccountStore implements authgate.AccountStore on a GORM database
type AccountStore struct {
	db *gorm.DB
}

// NewAccountStore migrates the accounts table and returns the store
func NewAccountStore(db *gorm.DB) (*AccountStore, error) {
	if err := db.AutoMigrate(&AccountModel{}); err != nil {
		return nil, err
	}
	return &AccountStore{db: db}, nil
}

func (s *AccountStore) GetAccountByID(id string) (*ag.Account, error) {
	var model AccountModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ag.ErrAccountNotFound
		}
		return nil, err
	}
	return model.ToAccount(), nil
}

func (s *AccountStore) GetAccountByEmail(email string) (*ag.Account, error) {
	var model AccountModel
	if err := s.db.First(&model, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ag.ErrAccountNotFound
		}
		return nil, err
	}
	return model.ToAccount(), nil
}

func (s *AccountStore) CreateAccount(email string, cred ag.Credential) (*ag.Account, error) {
	model := &AccountModel{
		ID:              ag.NewAccountID(),
		Email:           email,
		CredentialKind:  cred.Kind,
		CredentialValue: cred.Value,
	}
	if err := s.db.Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, ag.ErrEmailTaken
		}
		return nil, err
	}
	return model.ToAccount(), nil
}

// isDuplicateKey recognizes a unique-constraint violation. GORM translates
// these to ErrDuplicatedKey when opened with TranslateError; the message
// checks cover drivers opened without it.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
