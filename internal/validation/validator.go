// Package validation provides struct validation using go-playground/validator v10.
// It keeps a single validator instance (struct info is cached) and converts
// field failures into LUXY_VALIDATION errors.
package validation

import (
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	errordefs "github.com/P3dro7wz/Luxy/internal/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// FieldError describes one failed field.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidateStruct validates s and returns nil or a LUXY_VALIDATION error whose
// Details hold the failed fields.
func ValidateStruct(s interface{}) *errordefs.Error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errordefs.New(errordefs.LUXY_VALIDATION, err.Error())
	}

	fields := make([]FieldError, 0, len(verrs))
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := messageFor(fe)
		fields = append(fields, FieldError{Field: fe.Field(), Tag: fe.Tag(), Message: msg})
		messages = append(messages, msg)
	}
	return errordefs.NewWithDetails(errordefs.LUXY_VALIDATION, strings.Join(messages, "; "), fields)
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
	}
}
