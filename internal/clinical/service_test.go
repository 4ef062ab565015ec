package clinical

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/medrex/clinic-scheduling/pkg/interfaces"
	"github.com/medrex/clinic-scheduling/pkg/logger"
	"github.com/medrex/clinic-scheduling/pkg/types"
)

// MockPrescriptionRepository is a mock implementation of PrescriptionRepository
type MockPrescriptionRepository struct {
	mock.Mock
}

func (m *MockPrescriptionRepository) CreatePrescription(ctx context.Context, p *types.Prescription) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPrescriptionRepository) GetPrescriptionByAppointmentID(ctx context.Context, appointmentID string) (*types.Prescription, error) {
	args := m.Called(ctx, appointmentID)
	if v := args.Get(0); v != nil {
		return v.(*types.Prescription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPrescriptionRepository) GetAppointmentForUpdate(ctx context.Context, appointmentID string) (*types.Appointment, error) {
	args := m.Called(ctx, appointmentID)
	if v := args.Get(0); v != nil {
		return v.(*types.Appointment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPrescriptionRepository) SetAppointmentStatus(ctx context.Context, appointmentID string, status types.AppointmentStatus) error {
	return m.Called(ctx, appointmentID, status).Error(0)
}

func (m *MockPrescriptionRepository) WithinTx(ctx context.Context, fn func(repo interfaces.PrescriptionRepository) error) error {
	return fn(m)
}

var (
	house  = &types.Principal{Role: types.RoleDoctor, Subject: "house@clinic.test", EntityID: "doc-1"}
	wilson = &types.Principal{Role: types.RoleDoctor, Subject: "wilson@clinic.test", EntityID: "doc-2"}
)

func setupTestService() (*Service, *MockPrescriptionRepository) {
	repo := new(MockPrescriptionRepository)
	return NewService(repo, logger.New("error")), repo
}

func validRequest() *types.PrescriptionRequest {
	return &types.PrescriptionRequest{
		AppointmentID: "apt-1",
		PatientName:   "Ann Smith",
		Medication:    "Amoxicillin",
		Dosage:        "500mg twice daily",
	}
}

func appointment() *types.Appointment {
	return &types.Appointment{ID: "apt-1", DoctorID: "doc-1", PatientID: "pat-a"}
}

func missing() error {
	return types.NewNotFoundError(types.ErrCodeNotFound, "prescription not found")
}

func TestSavePrescription(t *testing.T) {
	service, repo := setupTestService()

	repo.On("GetAppointmentForUpdate", mock.Anything, "apt-1").Return(appointment(), nil)
	repo.On("GetPrescriptionByAppointmentID", mock.Anything, "apt-1").Return(nil, missing())
	repo.On("CreatePrescription", mock.Anything, mock.MatchedBy(func(p *types.Prescription) bool {
		return p.AppointmentID == "apt-1" && p.Medication == "Amoxicillin" && p.ID != ""
	})).Return(nil)
	repo.On("SetAppointmentStatus", mock.Anything, "apt-1", types.StatusPrescriptionAdded).Return(nil)

	p, err := service.SavePrescription(context.Background(), house, validRequest())

	require.NoError(t, err)
	assert.Equal(t, "Ann Smith", p.PatientName)
	repo.AssertExpectations(t)
}

func TestSavePrescription_AlreadyExists(t *testing.T) {
	service, repo := setupTestService()

	repo.On("GetAppointmentForUpdate", mock.Anything, "apt-1").Return(appointment(), nil)
	repo.On("GetPrescriptionByAppointmentID", mock.Anything, "apt-1").Return(&types.Prescription{ID: "rx-1"}, nil)

	_, err := service.SavePrescription(context.Background(), house, validRequest())

	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrorKindConflict))
	repo.AssertNotCalled(t, "CreatePrescription", mock.Anything, mock.Anything)
}

func TestSavePrescription_OtherDoctorsAppointment(t *testing.T) {
	service, repo := setupTestService()

	repo.On("GetAppointmentForUpdate", mock.Anything, "apt-1").Return(appointment(), nil)

	_, err := service.SavePrescription(context.Background(), wilson, validRequest())

	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrorKindUnauthorized))
	repo.AssertNotCalled(t, "CreatePrescription", mock.Anything, mock.Anything)
}

func TestSavePrescription_UnknownAppointment(t *testing.T) {
	service, repo := setupTestService()

	repo.On("GetAppointmentForUpdate", mock.Anything, "apt-1").
		Return(nil, types.NewNotFoundError(types.ErrCodeAppointmentMissing, "appointment not found"))

	_, err := service.SavePrescription(context.Background(), house, validRequest())

	assert.True(t, types.IsKind(err, types.ErrorKindNotFound))
}

func TestSavePrescription_StoreFailure(t *testing.T) {
	service, repo := setupTestService()

	repo.On("GetAppointmentForUpdate", mock.Anything, "apt-1").Return(appointment(), nil)
	repo.On("GetPrescriptionByAppointmentID", mock.Anything, "apt-1").Return(nil, missing())
	repo.On("CreatePrescription", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err := service.SavePrescription(context.Background(), house, validRequest())

	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrorKindInternal))
	repo.AssertNotCalled(t, "SetAppointmentStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestSavePrescription_Validation(t *testing.T) {
	service, _ := setupTestService()
	req := validRequest()
	req.Medication = ""

	_, err := service.SavePrescription(context.Background(), house, req)

	assert.True(t, types.IsKind(err, types.ErrorKindInvalidInput))
}

func TestSavePrescription_PatientsCannotPrescribe(t *testing.T) {
	service, _ := setupTestService()
	patient := &types.Principal{Role: types.RolePatient, EntityID: "pat-a"}

	_, err := service.SavePrescription(context.Background(), patient, validRequest())

	assert.True(t, types.IsKind(err, types.ErrorKindUnauthorized))
}

func TestGetPrescription(t *testing.T) {
	service, repo := setupTestService()
	repo.On("GetPrescriptionByAppointmentID", mock.Anything, "apt-1").Return(&types.Prescription{ID: "rx-1"}, nil)

	p, err := service.GetPrescription(context.Background(), house, "apt-1")

	require.NoError(t, err)
	assert.Equal(t, "rx-1", p.ID)
}

func TestGetPrescription_NotFound(t *testing.T) {
	service, repo := setupTestService()
	repo.On("GetPrescriptionByAppointmentID", mock.Anything, "apt-9").Return(nil, missing())

	_, err := service.GetPrescription(context.Background(), house, "apt-9")

	assert.True(t, types.IsKind(err, types.ErrorKindNotFound))
}
