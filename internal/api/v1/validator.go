package api

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fleetops/geocheckin/internal/checkin"
	"github.com/fleetops/geocheckin/internal/errors"
)

// RequestValidator implements echo.Validator with go-playground/validator.
type RequestValidator struct {
	validate *validator.Validate
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

// Validate checks i's struct tags. Failures wrap checkin.ErrInvalidRequest.
func (rv *RequestValidator) Validate(i any) error {
	err := rv.validate.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.New(fmt.Errorf("%w: %w", checkin.ErrInvalidRequest, err)).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}
	return errors.New(fmt.Errorf("%w: %s", checkin.ErrInvalidRequest, strings.Join(problems, "; "))).
		Component("api").
		Category(errors.CategoryValidation).
		Context("fields", len(problems)).
		Build()
}

// describe renders a field error using the JSON path, e.g. "position.latitude is required".
func describe(fe validator.FieldError) string {
	_, field, found := strings.Cut(fe.Namespace(), ".")
	if !found {
		field = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
