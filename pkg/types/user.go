package types

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of actor roles a credential can be issued for
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Roles lists every known role
var Roles = []Role{RoleAdmin, RoleDoctor, RolePatient}

// ParseRole converts a claimed role string into a Role
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleDoctor:
		return RoleDoctor, nil
	case RolePatient:
		return RolePatient, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Principal is the identity a verified credential resolves to
type Principal struct {
	Role     Role   `json:"role"`
	Subject  string `json:"subject"`
	EntityID string `json:"entity_id"`
}

// Admin represents a clinic administrator, provisioned out of band
type Admin struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Patient represents a registered patient
type Patient struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	Phone        string    `json:"phone" db:"phone"`
	Address      string    `json:"address" db:"address"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// PatientSignupRequest represents patient registration data
type PatientSignupRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,numeric,len=10"`
	Address  string `json:"address" validate:"max=255"`
	Password string `json:"password" validate:"required,min=6"`
}

// Credentials represents login credentials. Identifier is the username for
// admins and the email address for doctors and patients.
type Credentials struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// AuthToken represents an issued credential
type AuthToken struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	Role      Role      `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
