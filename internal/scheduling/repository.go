package scheduling

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/medrex/clinic-scheduling/pkg/database"
	"github.com/medrex/clinic-scheduling/pkg/interfaces"
	"github.com/medrex/clinic-scheduling/pkg/logger"
	"github.com/medrex/clinic-scheduling/pkg/monitoring"
	"github.com/medrex/clinic-scheduling/pkg/repository"
	"github.com/medrex/clinic-scheduling/pkg/types"
)

// Repository implements the SchedulingRepository interface
type Repository struct {
	db      *database.DB
	q       database.Querier
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector
}

// NewRepository creates a new scheduling repository. metrics may be nil.
func NewRepository(db *database.DB, log *logger.Logger, metrics *monitoring.MetricsCollector) *Repository {
	return &Repository{
		db:      db,
		q:       db,
		logger:  log,
		metrics: metrics,
	}
}

// WithinTx runs fn against a copy of the repository bound to one transaction.
// Calls made while already inside a transaction reuse it.
func (r *Repository) WithinTx(ctx context.Context, fn func(repo interfaces.SchedulingRepository) error) error {
	if _, inTx := r.q.(*sql.Tx); inTx {
		return fn(r)
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return fn(&Repository{db: r.db, q: tx, logger: r.logger, metrics: r.metrics})
	})
}

func (r *Repository) track(ctx context.Context, op, table string, start time.Time, err error) {
	duration := time.Since(start)
	if r.metrics != nil {
		r.metrics.RecordDBQuery(op, duration)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		r.logger.DatabaseOperation(ctx, op, table, duration, err)
	}
}

// escapeLike escapes LIKE wildcards so s matches literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// containsPattern builds an ILIKE pattern for case-insensitive substring match
func containsPattern(s string) string {
	return "%" + escapeLike(s) + "%"
}

// Doctors

// CreateDoctor inserts a doctor
func (r *Repository) CreateDoctor(ctx context.Context, doctor *types.Doctor) error {
	query := `
		INSERT INTO doctors (
			id, name, specialty, email, phone, password_hash, available_times, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	start := time.Now()
	_, err := r.q.ExecContext(ctx, query,
		doctor.ID,
		doctor.Name,
		doctor.Specialty,
		doctor.Email,
		doctor.Phone,
		doctor.PasswordHash,
		repository.SlotArray(doctor.AvailableTimes),
		doctor.CreatedAt,
		doctor.UpdatedAt,
	)
	r.track(ctx, "insert", "doctors", start, err)

	if err != nil {
		if database.IsUniqueViolation(err, database.ConstraintDoctorEmail) {
			return types.NewConflictError(types.ErrCodeDuplicateEntity, "doctor with this email already exists", err)
		}
		return fmt.Errorf("failed to create doctor: %w", err)
	}

	r.logger.WithField("doctor_id", doctor.ID).Info("Created doctor")
	return nil
}

// GetDoctorByID retrieves a doctor by ID
func (r *Repository) GetDoctorByID(ctx context.Context, id string) (*types.Doctor, error) {
	query := `SELECT ` + repository.DoctorColumns + ` FROM doctors d WHERE d.id = $1`

	start := time.Now()
	doctor, err := repository.ScanDoctor(r.q.QueryRowContext(ctx, query, id))
	r.track(ctx, "select", "doctors", start, err)

	if err != nil {
		if database.IsMissingRow(err) {
			return nil, types.NewNotFoundError(types.ErrCodeDoctorNotFound, "doctor not found")
		}
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}

	return doctor, nil
}

// ListDoctors returns every doctor ordered by name
func (r *Repository) ListDoctors(ctx context.Context) ([]*types.Doctor, error) {
	return r.queryDoctors(ctx, "")
}

// FindDoctorsByName returns doctors whose name contains name, ignoring case
func (r *Repository) FindDoctorsByName(ctx context.Context, name string) ([]*types.Doctor, error) {
	return r.queryDoctors(ctx, "WHERE d.name ILIKE $1", containsPattern(name))
}

// FindDoctorsBySpecialty returns doctors whose specialty contains specialty, ignoring case
func (r *Repository) FindDoctorsBySpecialty(ctx context.Context, specialty string) ([]*types.Doctor, error) {
	return r.queryDoctors(ctx, "WHERE d.specialty ILIKE $1", containsPattern(specialty))
}

// FindDoctorsByNameAndSpecialty returns doctors matching both substrings, ignoring case
func (r *Repository) FindDoctorsByNameAndSpecialty(ctx context.Context, name, specialty string) ([]*types.Doctor, error) {
	return r.queryDoctors(ctx, "WHERE d.name ILIKE $1 AND d.specialty ILIKE $2", containsPattern(name), containsPattern(specialty))
}

func (r *Repository) queryDoctors(ctx context.Context, where string, args ...interface{}) ([]*types.Doctor, error) {
	query := `SELECT ` + repository.DoctorColumns + ` FROM doctors d ` + where + ` ORDER BY d.name, d.id`

	start := time.Now()
	rows, err := r.q.QueryContext(ctx, query, args...)
	r.track(ctx, "select", "doctors", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get doctors: %w", err)
	}
	defer rows.Close()

	doctors := []*types.Doctor{}
	for rows.Next() {
		doctor, err := repository.ScanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan doctor: %w", err)
		}
		doctors = append(doctors, doctor)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating doctors: %w", err)
	}

	return doctors, nil
}

// UpdateDoctor overwrites a doctor's profile and slots
func (r *Repository) UpdateDoctor(ctx context.Context, doctor *types.Doctor) error {
	query := `
		UPDATE doctors
		SET name = $1, specialty = $2, email = $3, phone = $4, password_hash = $5,
			available_times = $6, updated_at = $7
		WHERE id = $8`

	start := time.Now()
	result, err := r.q.ExecContext(ctx, query,
		doctor.Name,
		doctor.Specialty,
		doctor.Email,
		doctor.Phone,
		doctor.PasswordHash,
		repository.SlotArray(doctor.AvailableTimes),
		doctor.UpdatedAt,
		doctor.ID,
	)
	r.track(ctx, "update", "doctors", start, err)

	if err != nil {
		if database.IsUniqueViolation(err, database.ConstraintDoctorEmail) {
			return types.NewConflictError(types.ErrCodeDuplicateEntity, "doctor with this email already exists", err)
		}
		if database.IsInvalidTextRepresentation(err) {
			return types.NewNotFoundError(types.ErrCodeDoctorNotFound, "doctor not found")
		}
		return fmt.Errorf("failed to update doctor: %w", err)
	}

	return requireAffected(result, types.NewNotFoundError(types.ErrCodeDoctorNotFound, "doctor not found"))
}

// DeleteDoctor removes a doctor
func (r *Repository) DeleteDoctor(ctx context.Context, id string) error {
	start := time.Now()
	result, err := r.q.ExecContext(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	r.track(ctx, "delete", "doctors", start, err)
	if err != nil {
		if database.IsInvalidTextRepresentation(err) {
			return types.NewNotFoundError(types.ErrCodeDoctorNotFound, "doctor not found")
		}
		return fmt.Errorf("failed to delete doctor: %w", err)
	}

	return requireAffected(result, types.NewNotFoundError(types.ErrCodeDoctorNotFound, "doctor not found"))
}

// Appointments

const appointmentColumns = `a.id, a.doctor_id, a.patient_id, a.appointment_time, a.status,
	a.created_at, a.updated_at, d.name, p.name`

const appointmentJoins = `
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		JOIN patients p ON p.id = a.patient_id`

func scanAppointment(row repository.RowScanner) (*types.Appointment, error) {
	apt := &types.Appointment{}
	err := row.Scan(
		&apt.ID,
		&apt.DoctorID,
		&apt.PatientID,
		&apt.AppointmentTime,
		&apt.Status,
		&apt.CreatedAt,
		&apt.UpdatedAt,
		&apt.DoctorName,
		&apt.PatientName,
	)
	if err != nil {
		return nil, err
	}
	return apt, nil
}

// CreateAppointment inserts an appointment. A second booking of the same
// doctor and time fails on uq_appointments_doctor_time and is reported as a
// conflict.
func (r *Repository) CreateAppointment(ctx context.Context, apt *types.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, doctor_id, patient_id, appointment_time, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	start := time.Now()
	_, err := r.q.ExecContext(ctx, query,
		apt.ID,
		apt.DoctorID,
		apt.PatientID,
		apt.AppointmentTime,
		int(apt.Status),
		apt.CreatedAt,
		apt.UpdatedAt,
	)
	r.track(ctx, "insert", "appointments", start, err)

	if err != nil {
		if database.IsUniqueViolation(err, database.ConstraintAppointmentSlot) {
			return types.NewConflictError(types.ErrCodeSlotUnavailable, "slot is already booked", err)
		}
		if database.IsForeignKeyViolation(err) {
			return types.NewNotFoundError(types.ErrCodeNotFound, "doctor or patient no longer exists")
		}
		if database.IsInvalidTextRepresentation(err) {
			return types.NewNotFoundError(types.ErrCodeDoctorNotFound, "doctor not found")
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"appointment_id": apt.ID,
		"doctor_id":      apt.DoctorID,
		"patient_id":     apt.PatientID,
	}).Info("Created appointment")
	return nil
}

// GetAppointmentByID retrieves an appointment by ID
func (r *Repository) GetAppointmentByID(ctx context.Context, id string) (*types.Appointment, error) {
	return r.getAppointment(ctx, `SELECT `+appointmentColumns+appointmentJoins+` WHERE a.id = $1`, id)
}

// GetAppointmentForUpdate retrieves an appointment and locks its row until
// the surrounding transaction ends
func (r *Repository) GetAppointmentForUpdate(ctx context.Context, id string) (*types.Appointment, error) {
	return r.getAppointment(ctx, `SELECT `+appointmentColumns+appointmentJoins+` WHERE a.id = $1 FOR UPDATE OF a`, id)
}

func (r *Repository) getAppointment(ctx context.Context, query, id string) (*types.Appointment, error) {
	start := time.Now()
	apt, err := scanAppointment(r.q.QueryRowContext(ctx, query, id))
	r.track(ctx, "select", "appointments", start, err)

	if err != nil {
		if database.IsMissingRow(err) {
			return nil, types.NewNotFoundError(types.ErrCodeAppointmentMissing, "appointment not found")
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	return apt, nil
}

// UpdateAppointment moves an appointment and sets its status
func (r *Repository) UpdateAppointment(ctx context.Context, id string, appointmentTime time.Time, status types.AppointmentStatus) error {
	query := `UPDATE appointments SET appointment_time = $1, status = $2, updated_at = $3 WHERE id = $4`

	start := time.Now()
	result, err := r.q.ExecContext(ctx, query, appointmentTime, int(status), time.Now().UTC(), id)
	r.track(ctx, "update", "appointments", start, err)

	if err != nil {
		if database.IsUniqueViolation(err, database.ConstraintAppointmentSlot) {
			return types.NewConflictError(types.ErrCodeSlotUnavailable, "slot is already booked", err)
		}
		if database.IsInvalidTextRepresentation(err) {
			return types.NewNotFoundError(types.ErrCodeAppointmentMissing, "appointment not found")
		}
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	return requireAffected(result, types.NewNotFoundError(types.ErrCodeAppointmentMissing, "appointment not found"))
}

// UpdateAppointmentStatus sets an appointment's status
func (r *Repository) UpdateAppointmentStatus(ctx context.Context, id string, status types.AppointmentStatus) error {
	query := `UPDATE appointments SET status = $1, updated_at = $2 WHERE id = $3`

	start := time.Now()
	result, err := r.q.ExecContext(ctx, query, int(status), time.Now().UTC(), id)
	r.track(ctx, "update", "appointments", start, err)
	if err != nil {
		if database.IsInvalidTextRepresentation(err) {
			return types.NewNotFoundError(types.ErrCodeAppointmentMissing, "appointment not found")
		}
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	return requireAffected(result, types.NewNotFoundError(types.ErrCodeAppointmentMissing, "appointment not found"))
}

// DeleteAppointment removes an appointment
func (r *Repository) DeleteAppointment(ctx context.Context, id string) error {
	start := time.Now()
	result, err := r.q.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	r.track(ctx, "delete", "appointments", start, err)
	if err != nil {
		if database.IsInvalidTextRepresentation(err) {
			return types.NewNotFoundError(types.ErrCodeAppointmentMissing, "appointment not found")
		}
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	return requireAffected(result, types.NewNotFoundError(types.ErrCodeAppointmentMissing, "appointment not found"))
}

// DeleteAppointmentsByDoctor removes every appointment of a doctor
func (r *Repository) DeleteAppointmentsByDoctor(ctx context.Context, doctorID string) (int64, error) {
	start := time.Now()
	result, err := r.q.ExecContext(ctx, `DELETE FROM appointments WHERE doctor_id = $1`, doctorID)
	r.track(ctx, "delete", "appointments", start, err)
	if err != nil {
		if database.IsInvalidTextRepresentation(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to delete doctor appointments: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// GetDoctorAppointmentsInRange returns a doctor's appointments in [start, end)
func (r *Repository) GetDoctorAppointmentsInRange(ctx context.Context, doctorID string, start, end time.Time) ([]*types.Appointment, error) {
	return r.queryAppointments(ctx,
		`WHERE a.doctor_id = $1 AND a.appointment_time >= $2 AND a.appointment_time < $3`,
		doctorID, start, end)
}

// GetDoctorAppointmentsByPatientName returns a doctor's appointments in
// [start, end) whose patient name contains patientName, ignoring case
func (r *Repository) GetDoctorAppointmentsByPatientName(ctx context.Context, doctorID, patientName string, start, end time.Time) ([]*types.Appointment, error) {
	return r.queryAppointments(ctx,
		`WHERE a.doctor_id = $1 AND p.name ILIKE $2 AND a.appointment_time >= $3 AND a.appointment_time < $4`,
		doctorID, containsPattern(patientName), start, end)
}

// GetPatientAppointments returns every appointment of a patient
func (r *Repository) GetPatientAppointments(ctx context.Context, patientID string) ([]*types.Appointment, error) {
	return r.queryAppointments(ctx, `WHERE a.patient_id = $1`, patientID)
}

// GetPatientAppointmentsByStatus returns a patient's appointments with status
func (r *Repository) GetPatientAppointmentsByStatus(ctx context.Context, patientID string, status types.AppointmentStatus) ([]*types.Appointment, error) {
	return r.queryAppointments(ctx, `WHERE a.patient_id = $1 AND a.status = $2`, patientID, int(status))
}

// GetPatientAppointmentsByDoctorName returns a patient's appointments with
// doctors whose name contains doctorName, ignoring case
func (r *Repository) GetPatientAppointmentsByDoctorName(ctx context.Context, patientID, doctorName string) ([]*types.Appointment, error) {
	return r.queryAppointments(ctx, `WHERE a.patient_id = $1 AND d.name ILIKE $2`, patientID, containsPattern(doctorName))
}

// GetPatientAppointmentsByDoctorNameAndStatus combines the doctor name and status filters
func (r *Repository) GetPatientAppointmentsByDoctorNameAndStatus(ctx context.Context, patientID, doctorName string, status types.AppointmentStatus) ([]*types.Appointment, error) {
	return r.queryAppointments(ctx,
		`WHERE a.patient_id = $1 AND d.name ILIKE $2 AND a.status = $3`,
		patientID, containsPattern(doctorName), int(status))
}

// queryAppointments runs a filtered appointment query ordered by time
func (r *Repository) queryAppointments(ctx context.Context, where string, args ...interface{}) ([]*types.Appointment, error) {
	query := `SELECT ` + appointmentColumns + appointmentJoins + ` ` + where + ` ORDER BY a.appointment_time ASC, a.id`

	start := time.Now()
	rows, err := r.q.QueryContext(ctx, query, args...)
	r.track(ctx, "select", "appointments", start, err)
	if err != nil {
		if database.IsInvalidTextRepresentation(err) {
			return []*types.Appointment{}, nil
		}
		return nil, fmt.Errorf("failed to get appointments: %w", err)
	}
	defer rows.Close()

	appointments := []*types.Appointment{}
	for rows.Next() {
		apt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, apt)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating appointments: %w", err)
	}

	return appointments, nil
}

func requireAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

var _ interfaces.SchedulingRepository = (*Repository)(nil)
