package scheduling

import (
	"context"
	"time"

	"github.com/medrex/clinic-scheduling/pkg/interfaces"
	"github.com/medrex/clinic-scheduling/pkg/types"
)

// dayBounds returns [date 00:00, date+1 00:00) in loc
func dayBounds(date time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := date.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// ComputeAvailability returns the doctor's configured slots for date minus the
// ones already booked, in configured order. An unknown doctor has no slots.
func (s *Service) ComputeAvailability(ctx context.Context, doctorID string, date time.Time) ([]types.TimeOfDay, error) {
	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		if types.IsKind(err, types.ErrorKindNotFound) {
			return []types.TimeOfDay{}, nil
		}
		return nil, s.storeError(err, "compute availability")
	}

	slots, err := s.openSlots(ctx, s.repo, doctor, date, "")
	if err != nil {
		return nil, s.storeError(err, "compute availability")
	}

	if s.metrics != nil {
		s.metrics.RecordAvailability(len(slots))
	}
	return slots, nil
}

// openSlots computes the set difference between doctor's slots and the times
// booked on date. The appointment named by excludeID does not count as booked.
func (s *Service) openSlots(ctx context.Context, repo interfaces.SchedulingRepository, doctor *types.Doctor, date time.Time, excludeID string) ([]types.TimeOfDay, error) {
	start, end := dayBounds(date, s.loc)

	booked, err := repo.GetDoctorAppointmentsInRange(ctx, doctor.ID, start, end)
	if err != nil {
		return nil, err
	}

	taken := make(map[types.TimeOfDay]struct{}, len(booked))
	for _, apt := range booked {
		if apt.ID == excludeID && excludeID != "" {
			continue
		}
		taken[types.TimeOfDayOf(apt.AppointmentTime.In(s.loc))] = struct{}{}
	}

	open := make([]types.TimeOfDay, 0, len(doctor.AvailableTimes))
	for _, slot := range doctor.AvailableTimes {
		if _, ok := taken[slot]; !ok {
			open = append(open, slot)
		}
	}
	return open, nil
}

// ValidateSlot checks that ts lands exactly on one of the doctor's open slots
func (s *Service) ValidateSlot(ctx context.Context, doctorID string, ts time.Time) (types.SlotVerdict, error) {
	verdict, err := s.validateSlot(ctx, s.repo, doctorID, ts, "")
	if err != nil {
		return verdict, s.storeError(err, "validate slot")
	}
	return verdict, nil
}

func (s *Service) validateSlot(ctx context.Context, repo interfaces.SchedulingRepository, doctorID string, ts time.Time, excludeID string) (types.SlotVerdict, error) {
	doctor, err := repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		if types.IsKind(err, types.ErrorKindNotFound) {
			return types.SlotDoctorNotFound, nil
		}
		return types.SlotUnavailable, err
	}

	local := ts.In(s.loc)
	// slots are whole minutes
	if local.Second() != 0 || local.Nanosecond() != 0 {
		return types.SlotUnavailable, nil
	}

	open, err := s.openSlots(ctx, repo, doctor, local, excludeID)
	if err != nil {
		return types.SlotUnavailable, err
	}

	want := types.TimeOfDayOf(local)
	for _, slot := range open {
		if slot == want {
			return types.SlotValid, nil
		}
	}
	return types.SlotUnavailable, nil
}

// verdictError converts a failed verdict into the error returned to callers
func verdictError(v types.SlotVerdict) error {
	switch v {
	case types.SlotValid:
		return nil
	case types.SlotDoctorNotFound:
		return types.NewNotFoundError(types.ErrCodeDoctorNotFound, "doctor not found")
	}
	return types.NewConflictError(types.ErrCodeSlotUnavailable, "requested time is not an open slot for this doctor", nil)
}
