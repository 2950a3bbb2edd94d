package gorm

import (
	"time"

	ag "github.com/tembold/authgate"
)

// AccountModel is the GORM model for accounts. The unique index on Email
// enforces the one-account-per-email invariant at the store level.
type AccountModel struct {
	ID              string    `gorm:"primaryKey;size:64"`
	Email           string    `gorm:"uniqueIndex;size:255;not null"`
	CredentialKind  string    `gorm:"size:32;not null"`
	CredentialValue string    `gorm:"size:255;not null"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

func (AccountModel) TableName() string {
	return "accounts"
}

func (m *AccountModel) ToAccount() *ag.Account {
	return &ag.Account{
		ID:    m.ID,
		Email: m.Email,
		Credential: ag.Credential{
			Kind:  m.CredentialKind,
			Value: m.CredentialValue,
		},
	}
}

func AccountToModel(a *ag.Account) *AccountModel {
	return &AccountModel{
		ID:              a.ID,
		Email:           a.Email,
		CredentialKind:  a.Credential.Kind,
		CredentialValue: a.Credential.Value,
	}
}
