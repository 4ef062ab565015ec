package iam

import (
	"context"

	"github.com/google/uuid"

	"github.com/medrex/clinic-scheduling/pkg/config"
	"github.com/medrex/clinic-scheduling/pkg/interfaces"
	"github.com/medrex/clinic-scheduling/pkg/logger"
	"github.com/medrex/clinic-scheduling/pkg/monitoring"
	"github.com/medrex/clinic-scheduling/pkg/types"
	"github.com/medrex/clinic-scheduling/pkg/validation"
)

var errBadLogin = types.NewUnauthorizedError(types.ErrCodeInvalidCredentials, "invalid credentials")

// Service implements login, patient signup and credential validation
type Service struct {
	logger    *logger.Logger
	patients  interfaces.PatientRepository
	resolver  *IdentityResolver
	tokens    *TokenAuthority
	passwords *PasswordManager
	metrics   *monitoring.MetricsCollector
}

// NewService creates a new IAM service instance
func NewService(
	cfg *config.Config,
	log *logger.Logger,
	identities interfaces.IdentityRepository,
	patients interfaces.PatientRepository,
	metrics *monitoring.MetricsCollector,
) *Service {
	resolver := NewIdentityResolver(identities)
	return &Service{
		logger:    log,
		patients:  patients,
		resolver:  resolver,
		tokens:    NewTokenAuthority(cfg.JWT, resolver, log),
		passwords: NewPasswordManager(cfg.JWT.BcryptCost),
		metrics:   metrics,
	}
}

// Tokens exposes the token authority for the gateway's route guard
func (s *Service) Tokens() *TokenAuthority {
	return s.tokens
}

// Passwords exposes the password manager for services that store credentials
func (s *Service) Passwords() *PasswordManager {
	return s.passwords
}

// Login verifies creds against the role's table and issues a credential
func (s *Service) Login(ctx context.Context, role types.Role, creds *types.Credentials) (*types.AuthToken, error) {
	if err := validation.Struct(creds); err != nil {
		return nil, err
	}

	token, err := s.login(ctx, role, creds)

	status := "success"
	if err != nil {
		status = "failure"
	}
	if s.metrics != nil {
		s.metrics.RecordAuthAttempt(string(role), status)
	}
	s.logger.Audit(creds.Identifier, "login", string(role), err == nil, nil)

	return token, err
}

func (s *Service) login(ctx context.Context, role types.Role, creds *types.Credentials) (*types.AuthToken, error) {
	id, err := s.resolver.lookup(ctx, role, creds.Identifier)
	if err != nil {
		if types.IsKind(err, types.ErrorKindNotFound) {
			s.passwords.burn(creds.Password)
			return nil, errBadLogin
		}
		if types.IsKind(err, types.ErrorKindInvalidInput) {
			return nil, err
		}
		s.logger.WithError(err).Error("Failed to look up identity")
		return nil, types.AsInternal(err, types.ErrCodeInternalError, "failed to look up identity")
	}

	ok, err := s.passwords.VerifyPassword(id.passwordHash, creds.Password)
	if err != nil {
		s.logger.WithError(err).WithField("entity_id", id.entityID).Error("Stored password hash is unusable")
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to verify password", err)
	}
	if !ok {
		return nil, errBadLogin
	}

	token, err := s.tokens.Issue(id.subject, role)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to issue credential", err)
	}
	return token, nil
}

// SignupPatient registers a new patient. Email and phone must be unused.
func (s *Service) SignupPatient(ctx context.Context, req *types.PatientSignupRequest) (*types.Patient, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	existing, err := s.patients.FindPatientByEmailOrPhone(ctx, req.Email, req.Phone)
	switch {
	case err == nil && existing != nil:
		return nil, types.NewConflictError(types.ErrCodeDuplicateEntity, "patient with this email or phone already exists", nil)
	case err != nil && !types.IsKind(err, types.ErrorKindNotFound):
		s.logger.WithError(err).Error("Failed to check for existing patient")
		return nil, types.AsInternal(err, types.ErrCodeInternalError, "failed to register patient")
	}

	hash, err := s.passwords.HashPassword(req.Password)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to hash password", err)
	}

	patient := &types.Patient{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		PasswordHash: hash,
	}

	if err := s.patients.CreatePatient(ctx, patient); err != nil {
		if !types.IsKind(err, types.ErrorKindConflict) {
			s.logger.WithError(err).Error("Failed to create patient")
		}
		return nil, types.AsInternal(err, types.ErrCodeInternalError, "failed to register patient")
	}

	s.logger.Audit(patient.ID, "signup", "patient", true, nil)
	return patient, nil
}

// PatientDetails returns the calling patient's record
func (s *Service) PatientDetails(ctx context.Context, caller *types.Principal) (*types.Patient, error) {
	if caller == nil || caller.Role != types.RolePatient {
		return nil, types.NewUnauthorizedError(types.ErrCodeUnauthorized, "only patients have a patient record")
	}

	patient, err := s.patients.GetPatientByID(ctx, caller.EntityID)
	if err != nil {
		if !types.IsKind(err, types.ErrorKindNotFound) {
			s.logger.WithError(err).Error("Failed to get patient")
		}
		return nil, types.AsInternal(err, types.ErrCodeInternalError, "failed to get patient")
	}
	return patient, nil
}

// ValidateToken reports whether token is valid for role
func (s *Service) ValidateToken(ctx context.Context, token string, role types.Role) bool {
	return s.tokens.Validate(ctx, token, role)
}

var _ interfaces.IAMService = (*Service)(nil)
