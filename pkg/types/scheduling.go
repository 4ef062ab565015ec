package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time without a date, stored as minutes after midnight
type TimeOfDay int

// Noon separates the AM and PM buckets
const Noon TimeOfDay = 12 * 60

// NewTimeOfDay builds a TimeOfDay from an hour and minute
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// TimeOfDayOf returns the time-of-day component of t in t's location
func TimeOfDayOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

// ParseTimeOfDay parses "HH:MM"
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}
	return TimeOfDayOf(t), nil
}

// Hour returns the hour component
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// On places t on the given date in loc
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MarshalJSON encodes the value as "HH:MM"
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes "HH:MM"
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTimesOfDay parses a list of "HH:MM" strings, dropping duplicates while
// keeping the first occurrence order
func ParseTimesOfDay(values []string) ([]TimeOfDay, error) {
	seen := make(map[TimeOfDay]struct{}, len(values))
	out := make([]TimeOfDay, 0, len(values))
	for _, v := range values {
		t, err := ParseTimeOfDay(v)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// FormatTimesOfDay renders slots as "HH:MM" strings
func FormatTimesOfDay(slots []TimeOfDay) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	return out
}

// Doctor represents a doctor and the recurring slots they can be booked at
type Doctor struct {
	ID             string      `json:"id" db:"id"`
	Name           string      `json:"name" db:"name"`
	Specialty      string      `json:"specialty" db:"specialty"`
	Email          string      `json:"email" db:"email"`
	Phone          string      `json:"phone" db:"phone"`
	PasswordHash   string      `json:"-" db:"password_hash"`
	AvailableTimes []TimeOfDay `json:"available_times" db:"available_times"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// DoctorRequest represents the payload for adding or updating a doctor
type DoctorRequest struct {
	Name           string   `json:"name" validate:"required,min=3,max=100"`
	Specialty      string   `json:"specialty" validate:"required,min=3,max=50"`
	Email          string   `json:"email" validate:"required,email"`
	Phone          string   `json:"phone" validate:"required,numeric,len=10"`
	Password       string   `json:"password" validate:"omitempty,min=6"`
	AvailableTimes []string `json:"available_times" validate:"required,min=1,dive,timeofday"`
}

// AppointmentStatus is the persisted appointment status code
type AppointmentStatus int

const (
	StatusScheduled         AppointmentStatus = 0
	StatusCompleted         AppointmentStatus = 1
	StatusPrescriptionAdded AppointmentStatus = 2
)

// Valid reports whether s is a known status code
func (s AppointmentStatus) Valid() bool {
	return s >= StatusScheduled && s <= StatusPrescriptionAdded
}

func (s AppointmentStatus) String() string {
	switch s {
	case StatusScheduled:
		return "scheduled"
	case StatusCompleted:
		return "completed"
	case StatusPrescriptionAdded:
		return "prescription_added"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Appointment represents a booked slot between a doctor and a patient
type Appointment struct {
	ID              string            `json:"id" db:"id"`
	DoctorID        string            `json:"doctor_id" db:"doctor_id"`
	PatientID       string            `json:"patient_id" db:"patient_id"`
	AppointmentTime time.Time         `json:"appointment_time" db:"appointment_time"`
	Status          AppointmentStatus `json:"status" db:"status"`
	DoctorName      string            `json:"doctor_name,omitempty" db:"doctor_name"`
	PatientName     string            `json:"patient_name,omitempty" db:"patient_name"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// BookingRequest represents a patient's request to book a slot
type BookingRequest struct {
	DoctorID        string    `json:"doctor_id" validate:"required"`
	AppointmentTime time.Time `json:"appointment_time" validate:"required"`
}

// RescheduleRequest represents a patient's request to move an appointment
type RescheduleRequest struct {
	AppointmentTime time.Time          `json:"appointment_time" validate:"required"`
	Status          *AppointmentStatus `json:"status,omitempty"`
}

// StatusUpdateRequest represents a doctor's status change for an appointment
type StatusUpdateRequest struct {
	Status AppointmentStatus `json:"status"`
}

// TimeBucket classifies a slot as before or from noon
type TimeBucket string

const (
	BucketAny TimeBucket = ""
	BucketAM  TimeBucket = "AM"
	BucketPM  TimeBucket = "PM"
)

// Contains reports whether slot falls in the bucket. 12:00 is PM.
func (b TimeBucket) Contains(slot TimeOfDay) bool {
	switch b {
	case BucketAM:
		return slot < Noon
	case BucketPM:
		return slot >= Noon
	}
	return true
}

// DoctorFilter holds the optional doctor search parameters. Empty means unconstrained.
type DoctorFilter struct {
	Name       string     `json:"name,omitempty"`
	Specialty  string     `json:"specialty,omitempty"`
	TimeBucket TimeBucket `json:"time,omitempty"`
}

// HistoryFilter holds the optional patient history parameters. Empty means unconstrained.
type HistoryFilter struct {
	Condition  string `json:"condition,omitempty"`
	DoctorName string `json:"doctor_name,omitempty"`
}

// SlotVerdict is the outcome of checking a proposed appointment time
type SlotVerdict int

const (
	SlotValid SlotVerdict = iota
	SlotDoctorNotFound
	SlotUnavailable
)

func (v SlotVerdict) String() string {
	switch v {
	case SlotValid:
		return "valid"
	case SlotDoctorNotFound:
		return "doctor_not_found"
	case SlotUnavailable:
		return "slot_unavailable"
	}
	return fmt.Sprintf("verdict(%d)", int(v))
}
