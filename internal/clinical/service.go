package clinical

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medrex/clinic-scheduling/pkg/interfaces"
	"github.com/medrex/clinic-scheduling/pkg/logger"
	"github.com/medrex/clinic-scheduling/pkg/types"
	"github.com/medrex/clinic-scheduling/pkg/validation"
)

// Service implements prescription management. An appointment carries at most
// one prescription, and saving it moves the appointment to PrescriptionAdded.
type Service struct {
	repo   interfaces.PrescriptionRepository
	logger *logger.Logger
	now    func() time.Time
}

// NewService creates a new prescription service
func NewService(repo interfaces.PrescriptionRepository, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: log,
		now:    time.Now,
	}
}

func requireDoctor(caller *types.Principal) error {
	if caller == nil || caller.Role != types.RoleDoctor {
		return types.NewUnauthorizedError(types.ErrCodeUnauthorized, "only doctors manage prescriptions")
	}
	return nil
}

// SavePrescription records the calling doctor's prescription for one of
// their appointments
func (s *Service) SavePrescription(ctx context.Context, caller *types.Principal, req *types.PrescriptionRequest) (*types.Prescription, error) {
	if err := requireDoctor(caller); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, types.NewInvalidInputError(types.ErrCodeInvalidInput, "prescription request is required", nil)
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	prescription := &types.Prescription{
		ID:            uuid.New().String(),
		AppointmentID: req.AppointmentID,
		PatientName:   req.PatientName,
		Medication:    req.Medication,
		Dosage:        req.Dosage,
		DoctorNotes:   req.DoctorNotes,
		CreatedAt:     s.now(),
	}

	err := s.repo.WithinTx(ctx, func(repo interfaces.PrescriptionRepository) error {
		apt, err := repo.GetAppointmentForUpdate(ctx, req.AppointmentID)
		if err != nil {
			return err
		}
		if apt.DoctorID != caller.EntityID {
			return types.NewUnauthorizedError(types.ErrCodeUnauthorized, "appointment belongs to another doctor")
		}

		_, err = repo.GetPrescriptionByAppointmentID(ctx, req.AppointmentID)
		switch {
		case err == nil:
			return types.NewConflictError(types.ErrCodeDuplicateEntity, "prescription already exists for this appointment", nil)
		case !types.IsKind(err, types.ErrorKindNotFound):
			return err
		}

		if err := repo.CreatePrescription(ctx, prescription); err != nil {
			return err
		}
		return repo.SetAppointmentStatus(ctx, req.AppointmentID, types.StatusPrescriptionAdded)
	})
	if err != nil {
		var ce *types.ClinicError
		if !errors.As(err, &ce) {
			s.logger.WithError(err).WithField("appointment_id", req.AppointmentID).Error("Failed to save prescription")
		}
		return nil, types.AsInternal(err, types.ErrCodeInternalError, "failed to save prescription")
	}

	s.logger.Audit(caller.EntityID, "save_prescription", "appointment:"+req.AppointmentID, true, nil)
	return prescription, nil
}

// GetPrescription returns the prescription recorded for an appointment
func (s *Service) GetPrescription(ctx context.Context, caller *types.Principal, appointmentID string) (*types.Prescription, error) {
	if err := requireDoctor(caller); err != nil {
		return nil, err
	}

	prescription, err := s.repo.GetPrescriptionByAppointmentID(ctx, appointmentID)
	if err != nil {
		if !types.IsKind(err, types.ErrorKindNotFound) {
			s.logger.WithError(err).WithField("appointment_id", appointmentID).Error("Failed to get prescription")
		}
		return nil, types.AsInternal(err, types.ErrCodeInternalError, "failed to get prescription")
	}
	return prescription, nil
}

var _ interfaces.ClinicalService = (*Service)(nil)
