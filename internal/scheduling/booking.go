package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/medrex/clinic-scheduling/pkg/interfaces"
	"github.com/medrex/clinic-scheduling/pkg/types"
	"github.com/medrex/clinic-scheduling/pkg/validation"
)

// track wraps a booking operation in a span and records its outcome
func (s *Service) track(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(ctx context.Context) error) error {
	ctx, span := s.tracing.StartSpan(ctx, "scheduling."+op, attrs...)
	defer span.End()

	err := fn(ctx)

	outcome := "success"
	if err != nil {
		outcome = string(types.KindOf(err))
		s.tracing.RecordError(span, err)
	}
	if s.metrics != nil {
		s.metrics.RecordBooking(op, outcome)
	}
	return err
}

// reserve claims the slot in the reservation store. Only a held slot fails the
// booking; an unreachable store leaves the unique constraint to arbitrate.
func (s *Service) reserve(ctx context.Context, doctorID string, ts time.Time) (func(), error) {
	release, err := s.reserver.Reserve(ctx, doctorID, ts)
	if err == nil {
		return release, nil
	}
	if types.IsKind(err, types.ErrorKindConflict) {
		return nil, err
	}
	s.logger.WithError(err).WithField("doctor_id", doctorID).Warn("Slot reservation unavailable, relying on store constraint")
	return func() {}, nil
}

// BookAppointment books a slot for the calling patient. The slot must be one
// of the doctor's open slots on that date.
func (s *Service) BookAppointment(ctx context.Context, caller *types.Principal, req *types.BookingRequest) (*types.Appointment, error) {
	if err := requireRole(caller, types.RolePatient); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, types.NewInvalidInputError(types.ErrCodeInvalidInput, "booking request is required", nil)
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var apt *types.Appointment
	attrs := []attribute.KeyValue{attribute.String("doctor_id", req.DoctorID)}
	err := s.track(ctx, "book", attrs, func(ctx context.Context) error {
		release, err := s.reserve(ctx, req.DoctorID, req.AppointmentTime)
		if err != nil {
			return err
		}
		defer release()

		verdict, err := s.validateSlot(ctx, s.repo, req.DoctorID, req.AppointmentTime, "")
		if err != nil {
			return s.storeError(err, "book appointment")
		}
		if err := verdictError(verdict); err != nil {
			return err
		}

		now := s.now()
		candidate := &types.Appointment{
			ID:              uuid.New().String(),
			DoctorID:        req.DoctorID,
			PatientID:       caller.EntityID,
			AppointmentTime: req.AppointmentTime.In(s.loc),
			Status:          types.StatusScheduled,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.repo.CreateAppointment(ctx, candidate); err != nil {
			return s.storeError(err, "book appointment")
		}
		apt = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Audit(caller.EntityID, "book", "appointment:"+apt.ID, true, map[string]interface{}{
		"doctor_id":        apt.DoctorID,
		"appointment_time": apt.AppointmentTime,
	})
	return apt, nil
}

// RescheduleAppointment moves the caller's appointment to a new open slot.
// The status is replaced when the request carries one.
func (s *Service) RescheduleAppointment(ctx context.Context, caller *types.Principal, aptID string, req *types.RescheduleRequest) (*types.Appointment, error) {
	if err := requireRole(caller, types.RolePatient); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, types.NewInvalidInputError(types.ErrCodeInvalidInput, "reschedule request is required", nil)
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, types.NewInvalidInputError(types.ErrCodeInvalidInput, "unknown appointment status", map[string]interface{}{
			"status": int(*req.Status),
		})
	}

	var updated *types.Appointment
	attrs := []attribute.KeyValue{attribute.String("appointment_id", aptID)}
	err := s.track(ctx, "reschedule", attrs, func(ctx context.Context) error {
		current, err := s.repo.GetAppointmentByID(ctx, aptID)
		if err != nil {
			return err
		}
		if current.PatientID != caller.EntityID {
			return errNotOwner
		}

		// held until the transaction below has committed
		release, err := s.reserve(ctx, current.DoctorID, req.AppointmentTime)
		if err != nil {
			return err
		}
		defer release()

		return s.repo.WithinTx(ctx, func(repo interfaces.SchedulingRepository) error {
			existing, err := repo.GetAppointmentForUpdate(ctx, aptID)
			if err != nil {
				return err
			}
			if existing.PatientID != caller.EntityID || existing.DoctorID != current.DoctorID {
				return errNotOwner
			}

			verdict, err := s.validateSlot(ctx, repo, existing.DoctorID, req.AppointmentTime, existing.ID)
			if err != nil {
				return err
			}
			if err := verdictError(verdict); err != nil {
				return err
			}

			status := existing.Status
			if req.Status != nil {
				status = *req.Status
			}
			ts := req.AppointmentTime.In(s.loc)
			if err := repo.UpdateAppointment(ctx, existing.ID, ts, status); err != nil {
				return err
			}

			existing.AppointmentTime = ts
			existing.Status = status
			existing.UpdatedAt = s.now()
			updated = existing
			return nil
		})
	})
	if err != nil {
		return nil, s.storeError(err, "reschedule appointment")
	}

	s.logger.Audit(caller.EntityID, "reschedule", "appointment:"+aptID, true, map[string]interface{}{
		"appointment_time": updated.AppointmentTime,
		"status":           updated.Status.String(),
	})
	return updated, nil
}

// CancelAppointment deletes the caller's appointment
func (s *Service) CancelAppointment(ctx context.Context, caller *types.Principal, aptID string) error {
	if err := requireRole(caller, types.RolePatient); err != nil {
		return err
	}

	attrs := []attribute.KeyValue{attribute.String("appointment_id", aptID)}
	err := s.track(ctx, "cancel", attrs, func(ctx context.Context) error {
		return s.repo.WithinTx(ctx, func(repo interfaces.SchedulingRepository) error {
			existing, err := repo.GetAppointmentForUpdate(ctx, aptID)
			if err != nil {
				return err
			}
			if existing.PatientID != caller.EntityID {
				return errNotOwner
			}
			return repo.DeleteAppointment(ctx, existing.ID)
		})
	})
	if err != nil {
		if types.IsKind(err, types.ErrorKindUnauthorized) {
			s.logger.Security("cancel_denied", caller.EntityID, map[string]interface{}{"appointment_id": aptID})
		}
		return s.storeError(err, "cancel appointment")
	}

	s.logger.Audit(caller.EntityID, "cancel", "appointment:"+aptID, true, nil)
	return nil
}

// UpdateAppointmentStatus lets the appointment's doctor move it through the
// clinical workflow
func (s *Service) UpdateAppointmentStatus(ctx context.Context, caller *types.Principal, aptID string, status types.AppointmentStatus) error {
	if err := requireRole(caller, types.RoleDoctor); err != nil {
		return err
	}
	if !status.Valid() {
		return types.NewInvalidInputError(types.ErrCodeInvalidInput, "unknown appointment status", map[string]interface{}{
			"status": int(status),
		})
	}

	attrs := []attribute.KeyValue{
		attribute.String("appointment_id", aptID),
		attribute.String("status", status.String()),
	}
	err := s.track(ctx, "update_status", attrs, func(ctx context.Context) error {
		return s.repo.WithinTx(ctx, func(repo interfaces.SchedulingRepository) error {
			existing, err := repo.GetAppointmentForUpdate(ctx, aptID)
			if err != nil {
				return err
			}
			if existing.DoctorID != caller.EntityID {
				return errNotDoctorOwner
			}
			return repo.UpdateAppointmentStatus(ctx, existing.ID, status)
		})
	})
	if err != nil {
		return s.storeError(err, "update appointment status")
	}

	s.logger.Audit(caller.EntityID, "update_status", "appointment:"+aptID, true, map[string]interface{}{
		"status": status.String(),
	})
	return nil
}
