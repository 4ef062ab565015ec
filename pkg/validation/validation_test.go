package validation

import (
	"testing"

	"github.com/medrex/clinic-scheduling/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStruct_Valid(t *testing.T) {
	req := &types.PatientSignupRequest{
		Name:     "Jane Roe",
		Email:    "jane@clinic.test",
		Phone:    "5551234567",
		Password: "secret1",
	}
	assert.NoError(t, Struct(req))
}

func TestStruct_FieldDetails(t *testing.T) {
	req := &types.PatientSignupRequest{
		Name:     "Jane Roe",
		Email:    "not-an-email",
		Phone:    "555",
		Password: "secret1",
	}

	err := Struct(req)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrorKindInvalidInput))

	var ce *types.ClinicError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "must be a valid email address", ce.Details["email"])
	assert.Equal(t, "must be exactly 10 characters", ce.Details["phone"])
}

func TestStruct_TimeOfDayTag(t *testing.T) {
	req := &types.DoctorRequest{
		Name:           "Gregory House",
		Specialty:      "Diagnostics",
		Email:          "house@clinic.test",
		Phone:          "5550000000",
		AvailableTimes: []string{"09:00", "25:99"},
	}

	err := Struct(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HH:MM")
}
