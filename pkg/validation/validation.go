package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/medrex/clinic-scheduling/pkg/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("timeofday", validateTimeOfDay)
}

// Struct validates s against its `validate` tags. Field failures are returned
// as an invalid_input ClinicError with one detail entry per field.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return types.NewInvalidInputError(types.ErrCodeValidationFailed, err.Error(), nil)
	}

	details := make(map[string]interface{}, len(fieldErrs))
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := describe(fe)
		field := strings.ToLower(fe.Field())
		details[field] = msg
		messages = append(messages, field+" "+msg)
	}

	return types.NewInvalidInputError(types.ErrCodeValidationFailed, strings.Join(messages, ", "), details)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "numeric":
		return "must contain only digits"
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "timeofday":
		return "must be a time in HH:MM format"
	}
	return "is invalid"
}

func validateTimeOfDay(fl validator.FieldLevel) bool {
	_, err := types.ParseTimeOfDay(fl.Field().String())
	return err == nil
}
