package authgate

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher produces and checks one-way salted password digests.
// Implementations must be computationally asymmetric: slow enough to resist
// brute force, fast enough for interactive login.
type PasswordHasher interface {
	// Hash returns a salted digest of the plaintext. Hashing failure is an
	// internal error, never a login rejection.
	Hash(plaintext string) (string, error)

	// Verify checks plaintext against a stored digest. Returns
	// ErrBadPassword on mismatch, any other error on internal failure.
	Verify(plaintext, digest string) error
}

// BcryptHasher hashes passwords with bcrypt. A zero Cost uses
// bcrypt.DefaultCost.
type BcryptHasher struct {
	Cost int
}

// DefaultHasher is a BcryptHasher at bcrypt's default cost
var DefaultHasher PasswordHasher = &BcryptHasher{}

func (h *BcryptHasher) cost() int {
	if h.Cost > 0 {
		return h.Cost
	}
	return bcrypt.DefaultCost
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	// bcrypt silently truncates beyond 72 bytes
	if len(plaintext) > 72 {
		return "", fmt.Errorf("password exceeds maximum length of 72 bytes")
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost())
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

func (h *BcryptHasher) Verify(plaintext, digest string) error {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrBadPassword
		}
		return fmt.Errorf("password verification failed: %w", err)
	}
	return nil
}
