package scheduling

import (
	"context"

	"github.com/google/uuid"

	"github.com/medrex/clinic-scheduling/pkg/interfaces"
	"github.com/medrex/clinic-scheduling/pkg/types"
	"github.com/medrex/clinic-scheduling/pkg/validation"
)

// ListDoctors returns every doctor
func (s *Service) ListDoctors(ctx context.Context) ([]*types.Doctor, error) {
	doctors, err := s.repo.ListDoctors(ctx)
	if err != nil {
		return nil, s.storeError(err, "list doctors")
	}
	return doctors, nil
}

// AddDoctor provisions a doctor with a login and recurring slots
func (s *Service) AddDoctor(ctx context.Context, req *types.DoctorRequest) (*types.Doctor, error) {
	if req == nil {
		return nil, types.NewInvalidInputError(types.ErrCodeInvalidInput, "doctor request is required", nil)
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, types.NewInvalidInputError(types.ErrCodeValidationFailed, "validation failed", map[string]interface{}{
			"password": "password is required",
		})
	}

	slots, err := types.ParseTimesOfDay(req.AvailableTimes)
	if err != nil {
		return nil, types.NewInvalidInputError(types.ErrCodeInvalidInput, err.Error(), nil)
	}
	hash, err := s.passwords.HashPassword(req.Password)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to hash password", err)
	}

	now := s.now()
	doctor := &types.Doctor{
		ID:             uuid.New().String(),
		Name:           req.Name,
		Specialty:      req.Specialty,
		Email:          req.Email,
		Phone:          req.Phone,
		PasswordHash:   hash,
		AvailableTimes: slots,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateDoctor(ctx, doctor); err != nil {
		return nil, s.storeError(err, "add doctor")
	}

	s.logger.Audit(actorOf(ctx), "add_doctor", "doctor:"+doctor.ID, true, nil)
	return doctor, nil
}

// UpdateDoctor replaces a doctor's profile and slots. An empty password keeps
// the stored one.
func (s *Service) UpdateDoctor(ctx context.Context, doctorID string, req *types.DoctorRequest) (*types.Doctor, error) {
	if req == nil {
		return nil, types.NewInvalidInputError(types.ErrCodeInvalidInput, "doctor request is required", nil)
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	slots, err := types.ParseTimesOfDay(req.AvailableTimes)
	if err != nil {
		return nil, types.NewInvalidInputError(types.ErrCodeInvalidInput, err.Error(), nil)
	}

	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		return nil, s.storeError(err, "update doctor")
	}

	if req.Password != "" {
		hash, err := s.passwords.HashPassword(req.Password)
		if err != nil {
			return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to hash password", err)
		}
		doctor.PasswordHash = hash
	}
	doctor.Name = req.Name
	doctor.Specialty = req.Specialty
	doctor.Email = req.Email
	doctor.Phone = req.Phone
	doctor.AvailableTimes = slots
	doctor.UpdatedAt = s.now()

	if err := s.repo.UpdateDoctor(ctx, doctor); err != nil {
		return nil, s.storeError(err, "update doctor")
	}

	s.logger.Audit(actorOf(ctx), "update_doctor", "doctor:"+doctor.ID, true, nil)
	return doctor, nil
}

// DeleteDoctor removes a doctor together with their appointments
func (s *Service) DeleteDoctor(ctx context.Context, doctorID string) error {
	var removed int64
	err := s.repo.WithinTx(ctx, func(repo interfaces.SchedulingRepository) error {
		if _, err := repo.GetDoctorByID(ctx, doctorID); err != nil {
			return err
		}
		n, err := repo.DeleteAppointmentsByDoctor(ctx, doctorID)
		if err != nil {
			return err
		}
		removed = n
		return repo.DeleteDoctor(ctx, doctorID)
	})
	if err != nil {
		return s.storeError(err, "delete doctor")
	}

	s.logger.Audit(actorOf(ctx), "delete_doctor", "doctor:"+doctorID, true, map[string]interface{}{
		"appointments_removed": removed,
	})
	return nil
}
