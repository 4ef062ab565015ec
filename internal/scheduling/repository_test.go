package scheduling

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrex/clinic-scheduling/pkg/config"
	"github.com/medrex/clinic-scheduling/pkg/database"
	"github.com/medrex/clinic-scheduling/pkg/interfaces"
	"github.com/medrex/clinic-scheduling/pkg/logger"
	"github.com/medrex/clinic-scheduling/pkg/monitoring"
	"github.com/medrex/clinic-scheduling/pkg/types"
)

func setupTestRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	log := logger.New("error")
	return NewRepository(database.Wrap(sqlDB, log), log, monitoring.NewMetricsCollector("scheduling-repo-test")), mock
}

var appointmentRowColumns = []string{
	"id", "doctor_id", "patient_id", "appointment_time", "status",
	"created_at", "updated_at", "doctor_name", "patient_name",
}

var doctorRowColumns = []string{
	"id", "name", "specialty", "email", "phone", "password_hash",
	"available_times", "created_at", "updated_at",
}

func TestRepository_CreateAppointment(t *testing.T) {
	repo, mock := setupTestRepository(t)
	now := time.Now().UTC()
	apt := &types.Appointment{
		ID:              "apt-1",
		DoctorID:        "doc-1",
		PatientID:       "pat-a",
		AppointmentTime: time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC),
		Status:          types.StatusScheduled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(apt.ID, apt.DoctorID, apt.PatientID, apt.AppointmentTime, 0, now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateAppointment(context.Background(), apt)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateAppointment_DoubleBookingIsConflict(t *testing.T) {
	repo, mock := setupTestRepository(t)

	mock.ExpectExec("INSERT INTO appointments").
		WillReturnError(&pq.Error{Code: "23505", Constraint: database.ConstraintAppointmentSlot})

	err := repo.CreateAppointment(context.Background(), &types.Appointment{ID: "apt-2"})

	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrorKindConflict))
}

func TestRepository_CreateAppointment_MissingPatient(t *testing.T) {
	repo, mock := setupTestRepository(t)

	mock.ExpectExec("INSERT INTO appointments").
		WillReturnError(&pq.Error{Code: "23503"})

	err := repo.CreateAppointment(context.Background(), &types.Appointment{ID: "apt-3"})

	assert.True(t, types.IsKind(err, types.ErrorKindNotFound))
}

func TestRepository_GetAppointmentByID_NotFound(t *testing.T) {
	repo, mock := setupTestRepository(t)

	mock.ExpectQuery("SELECT (.+) FROM appointments a").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetAppointmentByID(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrorKindNotFound))
}

func TestRepository_GetDoctorAppointmentsInRange(t *testing.T) {
	repo, mock := setupTestRepository(t)
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	now := time.Now()

	mock.ExpectQuery(`WHERE a.doctor_id = \$1 AND a.appointment_time >= \$2 AND a.appointment_time < \$3`).
		WithArgs("doc-1", start, end).
		WillReturnRows(sqlmock.NewRows(appointmentRowColumns).
			AddRow("apt-1", "doc-1", "pat-a", start.Add(10*time.Hour), 0, now, now, "Gregory House", "Ann Smith").
			AddRow("apt-2", "doc-1", "pat-b", start.Add(14*time.Hour), 1, now, now, "Gregory House", "Bob Jones"))

	apts, err := repo.GetDoctorAppointmentsInRange(context.Background(), "doc-1", start, end)

	require.NoError(t, err)
	require.Len(t, apts, 2)
	assert.Equal(t, "Ann Smith", apts[0].PatientName)
	assert.Equal(t, types.StatusCompleted, apts[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetPatientAppointmentsByDoctorName_EscapesWildcards(t *testing.T) {
	repo, mock := setupTestRepository(t)

	mock.ExpectQuery(`d.name ILIKE \$2`).
		WithArgs("pat-a", `%100\%%`).
		WillReturnRows(sqlmock.NewRows(appointmentRowColumns))

	apts, err := repo.GetPatientAppointmentsByDoctorName(context.Background(), "pat-a", "100%")

	require.NoError(t, err)
	assert.Empty(t, apts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindDoctorsByNameAndSpecialty(t *testing.T) {
	repo, mock := setupTestRepository(t)
	now := time.Now()

	mock.ExpectQuery(`WHERE d.name ILIKE \$1 AND d.specialty ILIKE \$2`).
		WithArgs("%hou%", "%diag%").
		WillReturnRows(sqlmock.NewRows(doctorRowColumns).
			AddRow("doc-1", "Gregory House", "Diagnostics", "house@clinic.test", "5550000000", "hash", "{09:00,14:00}", now, now))

	doctors, err := repo.FindDoctorsByNameAndSpecialty(context.Background(), "hou", "diag")

	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, []types.TimeOfDay{types.NewTimeOfDay(9, 0), types.NewTimeOfDay(14, 0)}, doctors[0].AvailableTimes)
}

func TestRepository_GetDoctorByID_NotFound(t *testing.T) {
	repo, mock := setupTestRepository(t)

	mock.ExpectQuery("SELECT (.+) FROM doctors d WHERE d.id = \\$1").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetDoctorByID(context.Background(), "ghost")

	assert.True(t, types.IsKind(err, types.ErrorKindNotFound))
}

func TestRepository_DeleteAppointment_Missing(t *testing.T) {
	repo, mock := setupTestRepository(t)

	mock.ExpectExec("DELETE FROM appointments WHERE id = \\$1").
		WithArgs("apt-x").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteAppointment(context.Background(), "apt-x")

	assert.True(t, types.IsKind(err, types.ErrorKindNotFound))
}

func TestRepository_WithinTx_LocksAndCommits(t *testing.T) {
	repo, mock := setupTestRepository(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE OF a").
		WithArgs("apt-1").
		WillReturnRows(sqlmock.NewRows(appointmentRowColumns).
			AddRow("apt-1", "doc-1", "pat-a", now, 0, now, now, "Gregory House", "Ann Smith"))
	mock.ExpectExec("DELETE FROM appointments").
		WithArgs("apt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.WithinTx(context.Background(), func(tx interfaces.SchedulingRepository) error {
		apt, err := tx.GetAppointmentForUpdate(context.Background(), "apt-1")
		if err != nil {
			return err
		}
		return tx.DeleteAppointment(context.Background(), apt.ID)
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_WithinTx_RollsBackOnOwnershipFailure(t *testing.T) {
	repo, mock := setupTestRepository(t)
	denied := errors.New("denied")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(tx interfaces.SchedulingRepository) error {
		return denied
	})

	assert.ErrorIs(t, err, denied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteAppointmentsByDoctor(t *testing.T) {
	repo, mock := setupTestRepository(t)

	mock.ExpectExec("DELETE FROM appointments WHERE doctor_id = \\$1").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteAppointmentsByDoctor(context.Background(), "doc-1")

	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func malformedUUID(value string) error {
	return &pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "` + value + `"`}
}

func TestRepository_MalformedIDsAreNotFound(t *testing.T) {
	repo, mock := setupTestRepository(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT (.+) FROM doctors d WHERE d.id = \\$1").
		WithArgs("abc").
		WillReturnError(malformedUUID("abc"))
	mock.ExpectQuery("FOR UPDATE OF a").
		WithArgs("abc").
		WillReturnError(malformedUUID("abc"))
	mock.ExpectExec("DELETE FROM appointments WHERE id = \\$1").
		WithArgs("abc").
		WillReturnError(malformedUUID("abc"))
	mock.ExpectExec("DELETE FROM doctors WHERE id = \\$1").
		WithArgs("abc").
		WillReturnError(malformedUUID("abc"))

	_, err := repo.GetDoctorByID(ctx, "abc")
	assert.True(t, types.IsKind(err, types.ErrorKindNotFound))

	_, err = repo.GetAppointmentForUpdate(ctx, "abc")
	assert.True(t, types.IsKind(err, types.ErrorKindNotFound))

	err = repo.DeleteAppointment(ctx, "abc")
	assert.True(t, types.IsKind(err, types.ErrorKindNotFound))

	err = repo.DeleteDoctor(ctx, "abc")
	assert.True(t, types.IsKind(err, types.ErrorKindNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_MalformedIDs(t *testing.T) {
	repo, mock := setupTestRepository(t)
	log := logger.New("error")
	service := NewService(&config.Config{}, log, repo, NoopReserver{}, stubHasher{}, nil, nil)
	ctx := context.Background()

	t.Run("availability of an unknown doctor is empty", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM doctors d WHERE d.id = \\$1").
			WithArgs("abc").
			WillReturnError(malformedUUID("abc"))

		slots, err := service.ComputeAvailability(ctx, "abc", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))

		require.NoError(t, err)
		assert.Empty(t, slots)
	})

	t.Run("validating against an unknown doctor", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM doctors d WHERE d.id = \\$1").
			WithArgs("abc").
			WillReturnError(malformedUUID("abc"))

		verdict, err := service.ValidateSlot(ctx, "abc", time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))

		require.NoError(t, err)
		assert.Equal(t, types.SlotDoctorNotFound, verdict)
	})

	t.Run("cancelling an unknown appointment", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE OF a").
			WithArgs("abc").
			WillReturnError(malformedUUID("abc"))
		mock.ExpectRollback()

		err := service.CancelAppointment(ctx, patientA, "abc")

		assert.True(t, types.IsKind(err, types.ErrorKindNotFound))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
