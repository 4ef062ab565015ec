package scheduling

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/medrex/clinic-scheduling/pkg/interfaces"
	"github.com/medrex/clinic-scheduling/pkg/types"
)

// MockSchedulingRepository is a mock implementation of SchedulingRepository.
// WithinTx runs fn against the mock itself.
type MockSchedulingRepository struct {
	mock.Mock
	// committed runs after a WithinTx callback succeeds
	committed func()
}

func doctorsArg(args mock.Arguments) []*types.Doctor {
	if v := args.Get(0); v != nil {
		return v.([]*types.Doctor)
	}
	return nil
}

func appointmentsArg(args mock.Arguments) []*types.Appointment {
	if v := args.Get(0); v != nil {
		return v.([]*types.Appointment)
	}
	return nil
}

func (m *MockSchedulingRepository) CreateDoctor(ctx context.Context, doctor *types.Doctor) error {
	return m.Called(ctx, doctor).Error(0)
}

func (m *MockSchedulingRepository) GetDoctorByID(ctx context.Context, id string) (*types.Doctor, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*types.Doctor), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSchedulingRepository) ListDoctors(ctx context.Context) ([]*types.Doctor, error) {
	args := m.Called(ctx)
	return doctorsArg(args), args.Error(1)
}

func (m *MockSchedulingRepository) FindDoctorsByName(ctx context.Context, name string) ([]*types.Doctor, error) {
	args := m.Called(ctx, name)
	return doctorsArg(args), args.Error(1)
}

func (m *MockSchedulingRepository) FindDoctorsBySpecialty(ctx context.Context, specialty string) ([]*types.Doctor, error) {
	args := m.Called(ctx, specialty)
	return doctorsArg(args), args.Error(1)
}

func (m *MockSchedulingRepository) FindDoctorsByNameAndSpecialty(ctx context.Context, name, specialty string) ([]*types.Doctor, error) {
	args := m.Called(ctx, name, specialty)
	return doctorsArg(args), args.Error(1)
}

func (m *MockSchedulingRepository) UpdateDoctor(ctx context.Context, doctor *types.Doctor) error {
	return m.Called(ctx, doctor).Error(0)
}

func (m *MockSchedulingRepository) DeleteDoctor(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockSchedulingRepository) CreateAppointment(ctx context.Context, apt *types.Appointment) error {
	return m.Called(ctx, apt).Error(0)
}

func (m *MockSchedulingRepository) GetAppointmentByID(ctx context.Context, id string) (*types.Appointment, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*types.Appointment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSchedulingRepository) GetAppointmentForUpdate(ctx context.Context, id string) (*types.Appointment, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*types.Appointment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSchedulingRepository) UpdateAppointment(ctx context.Context, id string, appointmentTime time.Time, status types.AppointmentStatus) error {
	return m.Called(ctx, id, appointmentTime, status).Error(0)
}

func (m *MockSchedulingRepository) UpdateAppointmentStatus(ctx context.Context, id string, status types.AppointmentStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockSchedulingRepository) DeleteAppointment(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockSchedulingRepository) DeleteAppointmentsByDoctor(ctx context.Context, doctorID string) (int64, error) {
	args := m.Called(ctx, doctorID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSchedulingRepository) GetDoctorAppointmentsInRange(ctx context.Context, doctorID string, start, end time.Time) ([]*types.Appointment, error) {
	args := m.Called(ctx, doctorID, start, end)
	return appointmentsArg(args), args.Error(1)
}

func (m *MockSchedulingRepository) GetDoctorAppointmentsByPatientName(ctx context.Context, doctorID, patientName string, start, end time.Time) ([]*types.Appointment, error) {
	args := m.Called(ctx, doctorID, patientName, start, end)
	return appointmentsArg(args), args.Error(1)
}

func (m *MockSchedulingRepository) GetPatientAppointments(ctx context.Context, patientID string) ([]*types.Appointment, error) {
	args := m.Called(ctx, patientID)
	return appointmentsArg(args), args.Error(1)
}

func (m *MockSchedulingRepository) GetPatientAppointmentsByStatus(ctx context.Context, patientID string, status types.AppointmentStatus) ([]*types.Appointment, error) {
	args := m.Called(ctx, patientID, status)
	return appointmentsArg(args), args.Error(1)
}

func (m *MockSchedulingRepository) GetPatientAppointmentsByDoctorName(ctx context.Context, patientID, doctorName string) ([]*types.Appointment, error) {
	args := m.Called(ctx, patientID, doctorName)
	return appointmentsArg(args), args.Error(1)
}

func (m *MockSchedulingRepository) GetPatientAppointmentsByDoctorNameAndStatus(ctx context.Context, patientID, doctorName string, status types.AppointmentStatus) ([]*types.Appointment, error) {
	args := m.Called(ctx, patientID, doctorName, status)
	return appointmentsArg(args), args.Error(1)
}

func (m *MockSchedulingRepository) WithinTx(ctx context.Context, fn func(repo interfaces.SchedulingRepository) error) error {
	m.Called(ctx)
	err := fn(m)
	if err == nil && m.committed != nil {
		m.committed()
	}
	return err
}

// MockSlotReserver is a mock implementation of SlotReserver
type MockSlotReserver struct {
	mock.Mock
}

func (m *MockSlotReserver) Reserve(ctx context.Context, doctorID string, ts time.Time) (func(), error) {
	args := m.Called(ctx, doctorID, ts)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return func() { m.MethodCalled("Release") }, nil
}

// stubHasher prefixes passwords so tests can assert what was stored
type stubHasher struct{}

func (stubHasher) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}
