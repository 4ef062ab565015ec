package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medrex/clinic-scheduling/pkg/database"
	"github.com/medrex/clinic-scheduling/pkg/logger"
	"github.com/medrex/clinic-scheduling/pkg/types"
)

// AccountRepository handles admin, doctor and patient identity records
type AccountRepository struct {
	db     database.Querier
	logger *logger.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db database.Querier, log *logger.Logger) *AccountRepository {
	return &AccountRepository{
		db:     db,
		logger: log,
	}
}

// GetAdminByUsername retrieves an admin by username
func (r *AccountRepository) GetAdminByUsername(ctx context.Context, username string) (*types.Admin, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM admins
		WHERE username = $1`

	var admin types.Admin
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&admin.ID,
		&admin.Username,
		&admin.PasswordHash,
		&admin.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "admin not found")
		}
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	return &admin, nil
}

// GetDoctorByEmail retrieves a doctor by email
func (r *AccountRepository) GetDoctorByEmail(ctx context.Context, email string) (*types.Doctor, error) {
	query := `SELECT ` + DoctorColumns + ` FROM doctors d WHERE d.email = $1`

	doctor, err := ScanDoctor(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.NewNotFoundError(types.ErrCodeDoctorNotFound, "doctor not found")
		}
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}

	return doctor, nil
}

// CreatePatient inserts a new patient. The password must already be hashed.
func (r *AccountRepository) CreatePatient(ctx context.Context, patient *types.Patient) error {
	if patient.ID == "" {
		patient.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	patient.CreatedAt = now
	patient.UpdatedAt = now

	query := `
		INSERT INTO patients (
			id, name, email, phone, address, password_hash, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.Name,
		patient.Email,
		patient.Phone,
		patient.Address,
		patient.PasswordHash,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return types.NewConflictError(types.ErrCodeDuplicateEntity, "patient with this email or phone already exists", err)
		}
		return fmt.Errorf("failed to create patient: %w", err)
	}

	r.logger.WithField("patient_id", patient.ID).Info("Created patient record")
	return nil
}

// GetPatientByID retrieves a patient by ID
func (r *AccountRepository) GetPatientByID(ctx context.Context, id string) (*types.Patient, error) {
	return r.getPatient(ctx, "id = $1", id)
}

// GetPatientByEmail retrieves a patient by email
func (r *AccountRepository) GetPatientByEmail(ctx context.Context, email string) (*types.Patient, error) {
	return r.getPatient(ctx, "email = $1", email)
}

// FindPatientByEmailOrPhone returns any patient already holding email or phone
func (r *AccountRepository) FindPatientByEmailOrPhone(ctx context.Context, email, phone string) (*types.Patient, error) {
	return r.getPatient(ctx, "email = $1 OR phone = $2", email, phone)
}

func (r *AccountRepository) getPatient(ctx context.Context, where string, args ...interface{}) (*types.Patient, error) {
	query := `
		SELECT id, name, email, phone, address, password_hash, created_at, updated_at
		FROM patients
		WHERE ` + where + `
		LIMIT 1`

	var patient types.Patient
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&patient.ID,
		&patient.Name,
		&patient.Email,
		&patient.Phone,
		&patient.Address,
		&patient.PasswordHash,
		&patient.CreatedAt,
		&patient.UpdatedAt,
	)
	if err != nil {
		if database.IsMissingRow(err) {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "patient not found")
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	return &patient, nil
}
