package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kbukum/plugwire/errors"
)

// Validator collects field errors for a config section. Field names are
// reported relative to the section scope, e.g. "services.greeter.key".
type Validator struct {
	scope  string
	errors []FieldError
}

// FieldError is a single failed check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// New creates a Validator with no scope.
func New() *Validator {
	return &Validator{}
}

// Within returns an empty validator for a nested section of v. Fold its
// errors back with Merge.
func (v *Validator) Within(section string) *Validator {
	return &Validator{scope: v.field(section)}
}

// Merge appends the errors of other to v.
func (v *Validator) Merge(other *Validator) *Validator {
	v.errors = append(v.errors, other.errors...)
	return v
}

func (v *Validator) field(name string) string {
	if v.scope == "" {
		return name
	}
	return v.scope + "." + name
}

// AddError records a failed check for field.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: v.field(field), Message: message})
}

// HasErrors reports whether any check failed.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns the failed checks in the order they ran.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Validate returns an INVALID_SETTINGS error listing every failed check,
// or nil.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}
	messages := make([]string, len(v.errors))
	for i, e := range v.errors {
		messages[i] = e.String()
	}
	return errors.Validation(strings.Join(messages, "; ")).
		WithDetail("fields", v.errors)
}

// Required fails when value is empty or blank.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// OneOf fails when value is not one of allowed.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	if !slices.Contains(allowed, value) {
		v.AddError(field, fmt.Sprintf("must be one of [%s] (got: %s)", strings.Join(allowed, ", "), value))
	}
	return v
}

// Range fails when value lies outside [lo, hi].
func (v *Validator) Range(field string, value, lo, hi float64) *Validator {
	if value < lo || value > hi {
		v.AddError(field, fmt.Sprintf("must be between %g and %g", lo, hi))
	}
	return v
}

// Extension fails when a non-empty value is not a file extension like ".so".
func (v *Validator) Extension(field, value string) *Validator {
	if value == "" {
		return v
	}
	if !strings.HasPrefix(value, ".") || len(value) < 2 || strings.ContainsAny(value, `/\`) {
		v.AddError(field, "must be a file extension like .so")
	}
	return v
}

// Custom records message for field when condition is false.
func (v *Validator) Custom(condition bool, field, message string) *Validator {
	if !condition {
		v.AddError(field, message)
	}
	return v
}

// Required checks a single field and returns an INVALID_SETTINGS error when
// it is empty.
func Required(field, value string) error {
	if appErr := New().Required(field, value).Validate(); appErr != nil {
		return appErr
	}
	return nil
}
