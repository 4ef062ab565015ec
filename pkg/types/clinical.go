package types

import "time"

// Prescription represents the medication a doctor issued for an appointment.
// An appointment carries at most one prescription.
type Prescription struct {
	ID            string    `json:"id" db:"id"`
	AppointmentID string    `json:"appointment_id" db:"appointment_id"`
	PatientName   string    `json:"patient_name" db:"patient_name"`
	Medication    string    `json:"medication" db:"medication"`
	Dosage        string    `json:"dosage" db:"dosage"`
	DoctorNotes   string    `json:"doctor_notes,omitempty" db:"doctor_notes"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// PrescriptionRequest represents the payload a doctor submits
type PrescriptionRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required"`
	PatientName   string `json:"patient_name" validate:"required,min=3,max=100"`
	Medication    string `json:"medication" validate:"required,min=3,max=100"`
	Dosage        string `json:"dosage" validate:"required"`
	DoctorNotes   string `json:"doctor_notes" validate:"max=200"`
}
