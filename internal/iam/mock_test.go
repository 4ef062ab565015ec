package iam

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/medrex/clinic-scheduling/pkg/types"
)

// MockAccountRepository implements IdentityRepository and PatientRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetAdminByUsername(ctx context.Context, username string) (*types.Admin, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Admin), args.Error(1)
}

func (m *MockAccountRepository) GetDoctorByEmail(ctx context.Context, email string) (*types.Doctor, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Doctor), args.Error(1)
}

func (m *MockAccountRepository) GetPatientByEmail(ctx context.Context, email string) (*types.Patient, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Patient), args.Error(1)
}

func (m *MockAccountRepository) GetPatientByID(ctx context.Context, id string) (*types.Patient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Patient), args.Error(1)
}

func (m *MockAccountRepository) FindPatientByEmailOrPhone(ctx context.Context, email, phone string) (*types.Patient, error) {
	args := m.Called(ctx, email, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Patient), args.Error(1)
}

func (m *MockAccountRepository) CreatePatient(ctx context.Context, patient *types.Patient) error {
	args := m.Called(ctx, patient)
	return args.Error(0)
}

func notFound() error {
	return types.NewNotFoundError(types.ErrCodeNotFound, "not found")
}
