package iam

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordManager implements password hashing and verification
type PasswordManager struct {
	cost int
	// compared against when the identity is unknown so both login failures cost the same
	decoy []byte
}

// NewPasswordManager creates a new password manager. A cost outside bcrypt's
// range falls back to bcrypt.DefaultCost.
func NewPasswordManager(cost int) *PasswordManager {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	decoy, _ := bcrypt.GenerateFromPassword([]byte("decoy-password"), cost)
	return &PasswordManager{
		cost:  cost,
		decoy: decoy,
	}
}

// HashPassword hashes a password using bcrypt
func (pm *PasswordManager) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), pm.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// VerifyPassword verifies a password against its hash
func (pm *PasswordManager) VerifyPassword(hashedPassword, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("failed to verify password: %w", err)
	}
	return true, nil
}

// burn spends one comparison against the decoy hash
func (pm *PasswordManager) burn(password string) {
	_ = bcrypt.CompareHashAndPassword(pm.decoy, []byte(password))
}
