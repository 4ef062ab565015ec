package scheduling

import (
	"context"
	"strings"
	"time"

	"github.com/medrex/clinic-scheduling/pkg/types"
)

// ParseTimeBucket parses "AM" or "PM" in any case. Empty is unconstrained.
func ParseTimeBucket(s string) (types.TimeBucket, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return types.BucketAny, nil
	case string(types.BucketAM):
		return types.BucketAM, nil
	case string(types.BucketPM):
		return types.BucketPM, nil
	}
	return types.BucketAny, types.NewInvalidInputError(types.ErrCodeInvalidInput, "time must be AM or PM", map[string]interface{}{
		"time": s,
	})
}

// ParseCondition maps "past" to Completed and "future" to Scheduled. ok is
// false when s is empty. Anything else is rejected.
func ParseCondition(s string) (status types.AppointmentStatus, ok bool, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, false, nil
	case "past":
		return types.StatusCompleted, true, nil
	case "future":
		return types.StatusScheduled, true, nil
	}
	return 0, false, types.NewInvalidInputError(types.ErrCodeInvalidInput, "condition must be past or future", map[string]interface{}{
		"condition": s,
	})
}

// SearchDoctors returns the doctors matching every supplied filter field
func (s *Service) SearchDoctors(ctx context.Context, filter types.DoctorFilter) ([]*types.Doctor, error) {
	bucket, err := ParseTimeBucket(string(filter.TimeBucket))
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(filter.Name)
	specialty := strings.TrimSpace(filter.Specialty)

	var doctors []*types.Doctor
	switch {
	case name != "" && specialty != "":
		doctors, err = s.repo.FindDoctorsByNameAndSpecialty(ctx, name, specialty)
	case name != "":
		doctors, err = s.repo.FindDoctorsByName(ctx, name)
	case specialty != "":
		doctors, err = s.repo.FindDoctorsBySpecialty(ctx, specialty)
	default:
		doctors, err = s.repo.ListDoctors(ctx)
	}
	if err != nil {
		return nil, s.storeError(err, "search doctors")
	}

	if bucket == types.BucketAny {
		return doctors, nil
	}
	return filterByBucket(doctors, bucket), nil
}

// filterByBucket keeps doctors with at least one slot in bucket
func filterByBucket(doctors []*types.Doctor, bucket types.TimeBucket) []*types.Doctor {
	out := make([]*types.Doctor, 0, len(doctors))
	for _, d := range doctors {
		for _, slot := range d.AvailableTimes {
			if bucket.Contains(slot) {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// PatientHistory returns the caller's appointments matching every supplied
// filter field, oldest first
func (s *Service) PatientHistory(ctx context.Context, caller *types.Principal, filter types.HistoryFilter) ([]*types.Appointment, error) {
	if err := requireRole(caller, types.RolePatient); err != nil {
		return nil, err
	}
	status, byStatus, err := ParseCondition(filter.Condition)
	if err != nil {
		return nil, err
	}
	doctorName := strings.TrimSpace(filter.DoctorName)
	patientID := caller.EntityID

	var apts []*types.Appointment
	switch {
	case byStatus && doctorName != "":
		apts, err = s.repo.GetPatientAppointmentsByDoctorNameAndStatus(ctx, patientID, doctorName, status)
	case byStatus:
		apts, err = s.repo.GetPatientAppointmentsByStatus(ctx, patientID, status)
	case doctorName != "":
		apts, err = s.repo.GetPatientAppointmentsByDoctorName(ctx, patientID, doctorName)
	default:
		apts, err = s.repo.GetPatientAppointments(ctx, patientID)
	}
	if err != nil {
		return nil, s.storeError(err, "get appointment history")
	}
	return apts, nil
}

// DoctorAppointments returns the caller's agenda for date, optionally narrowed
// to patients whose name contains patientName
func (s *Service) DoctorAppointments(ctx context.Context, caller *types.Principal, date time.Time, patientName string) ([]*types.Appointment, error) {
	if err := requireRole(caller, types.RoleDoctor); err != nil {
		return nil, err
	}
	start, end := dayBounds(date, s.loc)
	patientName = strings.TrimSpace(patientName)

	var (
		apts []*types.Appointment
		err  error
	)
	if patientName != "" {
		apts, err = s.repo.GetDoctorAppointmentsByPatientName(ctx, caller.EntityID, patientName, start, end)
	} else {
		apts, err = s.repo.GetDoctorAppointmentsInRange(ctx, caller.EntityID, start, end)
	}
	if err != nil {
		return nil, s.storeError(err, "get doctor appointments")
	}
	return apts, nil
}
