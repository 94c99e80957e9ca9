package exceptions

import (
	"labpulse-service/internal/pkg/constvars"
	"strings"

	"github.com/go-playground/validator/v10"
)

func FormatFirstValidationError(err error) string {
	if err == nil {
		return constvars.ErrClientCannotProcessRequest
	}

	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		first := validationErrors[0]
		fieldName := strings.ToLower(first.Field())
		switch first.Tag() {
		case "required":
			return fieldName + " is required"
		case "min":
			return fieldName + " must contain at least " + first.Param() + " items"
		case "oneof":
			return fieldName + " must be one of " + strings.Join(strings.Fields(first.Param()), ", ")
		default:
			return fieldName + " is invalid"
		}
	}

	return constvars.ErrClientCannotProcessRequest
}
