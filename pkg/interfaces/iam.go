package interfaces

import (
	"context"

	"github.com/medrex/clinic-scheduling/pkg/types"
)

// IAMService defines login, signup and credential validation
type IAMService interface {
	Login(ctx context.Context, role types.Role, creds *types.Credentials) (*types.AuthToken, error)
	SignupPatient(ctx context.Context, req *types.PatientSignupRequest) (*types.Patient, error)
	PatientDetails(ctx context.Context, caller *types.Principal) (*types.Patient, error)
	ValidateToken(ctx context.Context, token string, role types.Role) bool
}

// TokenResolver resolves a bearer credential for a claimed role
type TokenResolver interface {
	Resolve(ctx context.Context, token string, role types.Role) (*types.Principal, error)
}

// IdentityRepository defines the lookups behind login and credential validation
type IdentityRepository interface {
	GetAdminByUsername(ctx context.Context, username string) (*types.Admin, error)
	GetDoctorByEmail(ctx context.Context, email string) (*types.Doctor, error)
	GetPatientByEmail(ctx context.Context, email string) (*types.Patient, error)
}

// PatientRepository defines patient persistence
type PatientRepository interface {
	CreatePatient(ctx context.Context, patient *types.Patient) error
	GetPatientByID(ctx context.Context, id string) (*types.Patient, error)
	GetPatientByEmail(ctx context.Context, email string) (*types.Patient, error)
	FindPatientByEmailOrPhone(ctx context.Context, email, phone string) (*types.Patient, error)
}

// PasswordHasher hashes credentials before they are stored
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}
