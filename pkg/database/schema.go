package database

import (
	"context"
	"fmt"
)

// Constraint names referenced by repositories when mapping unique violations
const (
	ConstraintAppointmentSlot     = "uq_appointments_doctor_time"
	ConstraintPrescriptionPerAppt = "uq_prescriptions_appointment"
	ConstraintDoctorEmail         = "uq_doctors_email"
	ConstraintPatientEmail        = "uq_patients_email"
	ConstraintPatientPhone        = "uq_patients_phone"
)

// CreateSchema creates the scheduling tables and indexes if they do not exist
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.Info("Creating database schema...")

	tables := []string{
		createAdminsTable,
		createDoctorsTable,
		createPatientsTable,
		createAppointmentsTable,
		createPrescriptionsTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		createDoctorsIndexes,
		createAppointmentsIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	db.logger.Info("Database schema created successfully")
	return nil
}

const (
	createAdminsTable = `
		CREATE TABLE IF NOT EXISTS admins (
			id UUID PRIMARY KEY,
			username VARCHAR(100) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_admins_username UNIQUE (username)
		)`

	// available_times keeps the configured slot order
	createDoctorsTable = `
		CREATE TABLE IF NOT EXISTS doctors (
			id UUID PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			specialty VARCHAR(50) NOT NULL,
			email VARCHAR(255) NOT NULL,
			phone VARCHAR(20) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			available_times TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_doctors_email UNIQUE (email)
		)`

	createPatientsTable = `
		CREATE TABLE IF NOT EXISTS patients (
			id UUID PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			email VARCHAR(255) NOT NULL,
			phone VARCHAR(20) NOT NULL,
			address VARCHAR(255) NOT NULL DEFAULT '',
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_patients_email UNIQUE (email),
			CONSTRAINT uq_patients_phone UNIQUE (phone)
		)`

	// uq_appointments_doctor_time makes a doctor's slot bookable once
	createAppointmentsTable = `
		CREATE TABLE IF NOT EXISTS appointments (
			id UUID PRIMARY KEY,
			doctor_id UUID NOT NULL REFERENCES doctors(id) ON DELETE CASCADE,
			patient_id UUID NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
			appointment_time TIMESTAMPTZ NOT NULL,
			status SMALLINT NOT NULL DEFAULT 0 CHECK (status BETWEEN 0 AND 2),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_appointments_doctor_time UNIQUE (doctor_id, appointment_time)
		)`

	createPrescriptionsTable = `
		CREATE TABLE IF NOT EXISTS prescriptions (
			id UUID PRIMARY KEY,
			appointment_id UUID NOT NULL REFERENCES appointments(id) ON DELETE CASCADE,
			patient_name VARCHAR(100) NOT NULL,
			medication VARCHAR(100) NOT NULL,
			dosage VARCHAR(100) NOT NULL,
			doctor_notes VARCHAR(200) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_prescriptions_appointment UNIQUE (appointment_id)
		)`
)

const (
	createDoctorsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_doctors_name_lower ON doctors (LOWER(name));
		CREATE INDEX IF NOT EXISTS idx_doctors_specialty_lower ON doctors (LOWER(specialty));`

	createAppointmentsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_appointments_patient ON appointments (patient_id, appointment_time);
		CREATE INDEX IF NOT EXISTS idx_appointments_patient_status ON appointments (patient_id, status, appointment_time);`
)
