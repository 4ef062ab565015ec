package interfaces

import (
	"context"
	"time"

	"github.com/medrex/clinic-scheduling/pkg/types"
)

// SchedulingService defines availability, booking and search operations
type SchedulingService interface {
	// Availability
	ComputeAvailability(ctx context.Context, doctorID string, date time.Time) ([]types.TimeOfDay, error)
	ValidateSlot(ctx context.Context, doctorID string, ts time.Time) (types.SlotVerdict, error)

	// Booking
	BookAppointment(ctx context.Context, caller *types.Principal, req *types.BookingRequest) (*types.Appointment, error)
	RescheduleAppointment(ctx context.Context, caller *types.Principal, aptID string, req *types.RescheduleRequest) (*types.Appointment, error)
	CancelAppointment(ctx context.Context, caller *types.Principal, aptID string) error
	UpdateAppointmentStatus(ctx context.Context, caller *types.Principal, aptID string, status types.AppointmentStatus) error

	// Queries
	SearchDoctors(ctx context.Context, filter types.DoctorFilter) ([]*types.Doctor, error)
	PatientHistory(ctx context.Context, caller *types.Principal, filter types.HistoryFilter) ([]*types.Appointment, error)
	DoctorAppointments(ctx context.Context, caller *types.Principal, date time.Time, patientName string) ([]*types.Appointment, error)

	// Doctor directory
	ListDoctors(ctx context.Context) ([]*types.Doctor, error)
	AddDoctor(ctx context.Context, req *types.DoctorRequest) (*types.Doctor, error)
	UpdateDoctor(ctx context.Context, doctorID string, req *types.DoctorRequest) (*types.Doctor, error)
	DeleteDoctor(ctx context.Context, doctorID string) error
}

// SchedulingRepository defines the interface for scheduling data persistence.
// Lookups of a missing row return a not_found ClinicError.
type SchedulingRepository interface {
	// Doctors
	CreateDoctor(ctx context.Context, doctor *types.Doctor) error
	GetDoctorByID(ctx context.Context, id string) (*types.Doctor, error)
	ListDoctors(ctx context.Context) ([]*types.Doctor, error)
	FindDoctorsByName(ctx context.Context, name string) ([]*types.Doctor, error)
	FindDoctorsBySpecialty(ctx context.Context, specialty string) ([]*types.Doctor, error)
	FindDoctorsByNameAndSpecialty(ctx context.Context, name, specialty string) ([]*types.Doctor, error)
	UpdateDoctor(ctx context.Context, doctor *types.Doctor) error
	DeleteDoctor(ctx context.Context, id string) error

	// Appointments
	CreateAppointment(ctx context.Context, apt *types.Appointment) error
	GetAppointmentByID(ctx context.Context, id string) (*types.Appointment, error)
	GetAppointmentForUpdate(ctx context.Context, id string) (*types.Appointment, error)
	UpdateAppointment(ctx context.Context, id string, appointmentTime time.Time, status types.AppointmentStatus) error
	UpdateAppointmentStatus(ctx context.Context, id string, status types.AppointmentStatus) error
	DeleteAppointment(ctx context.Context, id string) error
	DeleteAppointmentsByDoctor(ctx context.Context, doctorID string) (int64, error)

	// Range and status queries
	GetDoctorAppointmentsInRange(ctx context.Context, doctorID string, start, end time.Time) ([]*types.Appointment, error)
	GetDoctorAppointmentsByPatientName(ctx context.Context, doctorID, patientName string, start, end time.Time) ([]*types.Appointment, error)
	GetPatientAppointments(ctx context.Context, patientID string) ([]*types.Appointment, error)
	GetPatientAppointmentsByStatus(ctx context.Context, patientID string, status types.AppointmentStatus) ([]*types.Appointment, error)
	GetPatientAppointmentsByDoctorName(ctx context.Context, patientID, doctorName string) ([]*types.Appointment, error)
	GetPatientAppointmentsByDoctorNameAndStatus(ctx context.Context, patientID, doctorName string, status types.AppointmentStatus) ([]*types.Appointment, error)

	// WithinTx runs fn against a repository bound to a single transaction
	WithinTx(ctx context.Context, fn func(repo SchedulingRepository) error) error
}

// SlotReserver holds a short-lived claim on a doctor's slot across the
// availability check and the insert
type SlotReserver interface {
	// Reserve claims the slot. The returned release func must be called once
	// the booking has committed or failed.
	Reserve(ctx context.Context, doctorID string, ts time.Time) (release func(), err error)
}
