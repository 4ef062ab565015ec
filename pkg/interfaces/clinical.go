package interfaces

import (
	"context"

	"github.com/medrex/clinic-scheduling/pkg/types"
)

// ClinicalService defines prescription operations
type ClinicalService interface {
	SavePrescription(ctx context.Context, caller *types.Principal, req *types.PrescriptionRequest) (*types.Prescription, error)
	GetPrescription(ctx context.Context, caller *types.Principal, appointmentID string) (*types.Prescription, error)
}

// PrescriptionRepository defines prescription persistence
type PrescriptionRepository interface {
	CreatePrescription(ctx context.Context, p *types.Prescription) error
	GetPrescriptionByAppointmentID(ctx context.Context, appointmentID string) (*types.Prescription, error)
	GetAppointmentForUpdate(ctx context.Context, appointmentID string) (*types.Appointment, error)
	SetAppointmentStatus(ctx context.Context, appointmentID string, status types.AppointmentStatus) error
	WithinTx(ctx context.Context, fn func(repo PrescriptionRepository) error) error
}
