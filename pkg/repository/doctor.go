package repository

import (
	"fmt"

	"github.com/lib/pq"
	"github.com/medrex/clinic-scheduling/pkg/types"
)

// DoctorColumns is the column list ScanDoctor expects, in order
const DoctorColumns = `d.id, d.name, d.specialty, d.email, d.phone, d.password_hash,
	d.available_times, d.created_at, d.updated_at`

// RowScanner is satisfied by *sql.Row and *sql.Rows
type RowScanner interface {
	Scan(dest ...interface{}) error
}

// ScanDoctor reads one doctor row selected with DoctorColumns
func ScanDoctor(row RowScanner) (*types.Doctor, error) {
	var doctor types.Doctor
	var times []string

	err := row.Scan(
		&doctor.ID,
		&doctor.Name,
		&doctor.Specialty,
		&doctor.Email,
		&doctor.Phone,
		&doctor.PasswordHash,
		pq.Array(&times),
		&doctor.CreatedAt,
		&doctor.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doctor.AvailableTimes, err = types.ParseTimesOfDay(times)
	if err != nil {
		return nil, fmt.Errorf("doctor %s has malformed available_times: %w", doctor.ID, err)
	}
	return &doctor, nil
}

// SlotArray adapts a slot list for a TEXT[] parameter
func SlotArray(slots []types.TimeOfDay) interface{} {
	return pq.Array(types.FormatTimesOfDay(slots))
}
