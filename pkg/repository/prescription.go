package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medrex/clinic-scheduling/pkg/database"
	"github.com/medrex/clinic-scheduling/pkg/interfaces"
	"github.com/medrex/clinic-scheduling/pkg/logger"
	"github.com/medrex/clinic-scheduling/pkg/types"
)

// PrescriptionRepository handles prescription records and the appointment
// status change that accompanies them
type PrescriptionRepository struct {
	db     *database.DB
	q      database.Querier
	logger *logger.Logger
}

// NewPrescriptionRepository creates a new prescription repository
func NewPrescriptionRepository(db *database.DB, log *logger.Logger) *PrescriptionRepository {
	return &PrescriptionRepository{
		db:     db,
		q:      db,
		logger: log,
	}
}

// WithinTx runs fn against a copy of the repository bound to one transaction
func (r *PrescriptionRepository) WithinTx(ctx context.Context, fn func(repo interfaces.PrescriptionRepository) error) error {
	if _, inTx := r.q.(*sql.Tx); inTx {
		return fn(r)
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return fn(&PrescriptionRepository{db: r.db, q: tx, logger: r.logger})
	})
}

// CreatePrescription inserts a prescription
func (r *PrescriptionRepository) CreatePrescription(ctx context.Context, p *types.Prescription) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO prescriptions (
			id, appointment_id, patient_name, medication, dosage, doctor_notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.q.ExecContext(ctx, query,
		p.ID,
		p.AppointmentID,
		p.PatientName,
		p.Medication,
		p.Dosage,
		p.DoctorNotes,
		p.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, database.ConstraintPrescriptionPerAppt) {
			return types.NewConflictError(types.ErrCodeDuplicateEntity, "appointment already has a prescription", err)
		}
		if database.IsInvalidTextRepresentation(err) {
			return types.NewNotFoundError(types.ErrCodeAppointmentMissing, "appointment not found")
		}
		return fmt.Errorf("failed to create prescription: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"prescription_id": p.ID,
		"appointment_id":  p.AppointmentID,
	}).Info("Created prescription")
	return nil
}

// GetPrescriptionByAppointmentID retrieves the prescription issued for an appointment
func (r *PrescriptionRepository) GetPrescriptionByAppointmentID(ctx context.Context, appointmentID string) (*types.Prescription, error) {
	query := `
		SELECT id, appointment_id, patient_name, medication, dosage, doctor_notes, created_at
		FROM prescriptions
		WHERE appointment_id = $1`

	var p types.Prescription
	err := r.q.QueryRowContext(ctx, query, appointmentID).Scan(
		&p.ID,
		&p.AppointmentID,
		&p.PatientName,
		&p.Medication,
		&p.Dosage,
		&p.DoctorNotes,
		&p.CreatedAt,
	)
	if err != nil {
		if database.IsMissingRow(err) {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "prescription not found")
		}
		return nil, fmt.Errorf("failed to get prescription: %w", err)
	}

	return &p, nil
}

// GetAppointmentForUpdate loads and row-locks an appointment
func (r *PrescriptionRepository) GetAppointmentForUpdate(ctx context.Context, appointmentID string) (*types.Appointment, error) {
	query := `
		SELECT id, doctor_id, patient_id, appointment_time, status, created_at, updated_at
		FROM appointments
		WHERE id = $1
		FOR UPDATE`

	var apt types.Appointment
	err := r.q.QueryRowContext(ctx, query, appointmentID).Scan(
		&apt.ID,
		&apt.DoctorID,
		&apt.PatientID,
		&apt.AppointmentTime,
		&apt.Status,
		&apt.CreatedAt,
		&apt.UpdatedAt,
	)
	if err != nil {
		if database.IsMissingRow(err) {
			return nil, types.NewNotFoundError(types.ErrCodeAppointmentMissing, "appointment not found")
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	return &apt, nil
}

// SetAppointmentStatus updates an appointment's status
func (r *PrescriptionRepository) SetAppointmentStatus(ctx context.Context, appointmentID string, status types.AppointmentStatus) error {
	query := `UPDATE appointments SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.q.ExecContext(ctx, query, int(status), time.Now().UTC(), appointmentID)
	if err != nil {
		if database.IsInvalidTextRepresentation(err) {
			return types.NewNotFoundError(types.ErrCodeAppointmentMissing, "appointment not found")
		}
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeAppointmentMissing, "appointment not found")
	}

	return nil
}
