package iam

import (
	"context"
	"fmt"

	"github.com/medrex/clinic-scheduling/pkg/interfaces"
	"github.com/medrex/clinic-scheduling/pkg/types"
)

// identity is what a role's table yields for a subject
type identity struct {
	role         types.Role
	subject      string
	entityID     string
	passwordHash string
}

func (i *identity) principal() *types.Principal {
	return &types.Principal{Role: i.role, Subject: i.subject, EntityID: i.entityID}
}

// IdentityResolver maps each role to the table its subjects live in.
// Admins are keyed by username, doctors and patients by email.
type IdentityResolver struct {
	repo interfaces.IdentityRepository
}

// NewIdentityResolver creates a resolver over repo
func NewIdentityResolver(repo interfaces.IdentityRepository) *IdentityResolver {
	return &IdentityResolver{repo: repo}
}

// lookup returns the identity for subject under role. A missing subject
// yields a not_found ClinicError.
func (r *IdentityResolver) lookup(ctx context.Context, role types.Role, subject string) (*identity, error) {
	switch role {
	case types.RoleAdmin:
		admin, err := r.repo.GetAdminByUsername(ctx, subject)
		if err != nil {
			return nil, err
		}
		return &identity{role: role, subject: admin.Username, entityID: admin.ID, passwordHash: admin.PasswordHash}, nil
	case types.RoleDoctor:
		doctor, err := r.repo.GetDoctorByEmail(ctx, subject)
		if err != nil {
			return nil, err
		}
		return &identity{role: role, subject: doctor.Email, entityID: doctor.ID, passwordHash: doctor.PasswordHash}, nil
	case types.RolePatient:
		patient, err := r.repo.GetPatientByEmail(ctx, subject)
		if err != nil {
			return nil, err
		}
		return &identity{role: role, subject: patient.Email, entityID: patient.ID, passwordHash: patient.PasswordHash}, nil
	}
	return nil, types.NewInvalidInputError(types.ErrCodeInvalidInput, fmt.Sprintf("unknown role %q", role), nil)
}
