// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var registrationPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9 -]{2,13}[A-Z0-9]$`)

// Validator wraps the go-playground validator for structured validation.
// Using a struct allows for dependency injection and easier testing.
type Validator struct {
	v *validator.Validate
}

// New creates a new Validator instance with the domain tags registered:
// vehicle_type, registration, payment_type and verdict.
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("vehicle_type", oneOf("car", "motorcycle", "truck", "van"))
	_ = v.RegisterValidation("payment_type", oneOf("booking_fee", "inspection_fee"))
	_ = v.RegisterValidation("verdict", oneOf("passed", "passed_with_minor_issues", "failed"))
	_ = v.RegisterValidation("registration", func(fl validator.FieldLevel) bool {
		return registrationPattern.MatchString(strings.ToUpper(strings.TrimSpace(fl.Field().String())))
	})

	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation registers a custom validation function.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}

func oneOf(values ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		current := fl.Field().String()
		for _, v := range values {
			if current == v {
				return true
			}
		}
		return false
	}
}
