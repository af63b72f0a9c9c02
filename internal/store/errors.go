package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/activity-signup/internal/model"
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ErrAuthorization is returned when an organization touches an activity it does not own.
var ErrAuthorization = errors.New("activity is owned by another organization")

// ErrNotFound is returned when a referenced activity does not exist.
var ErrNotFound = errors.New("activity not found")

// ErrCapacity is returned when an activity has no remaining slots.
var ErrCapacity = errors.New("activity is full")

// ErrDuplicate is returned when the same participant registers twice.
var ErrDuplicate = errors.New("participant already registered for this activity")

// Field error codes.
const (
	CodeRequired        = "required"
	CodeInvalidFormat   = "invalid_format"
	CodeInvalidURL      = "invalid_url"
	CodeOutOfRange      = "out_of_range"
	CodeRangeOrder      = "range_order"
	CodeDateOutOfWindow = "date_out_of_range"
	CodeTimeOutOfWindow = "time_out_of_range"
)

// ValidationError collects every rejected field of one request so a form
// can be painted in a single round trip.
type ValidationError struct {
	Fields []model.FieldError
}

// NewValidationError returns a ValidationError holding a single field error.
func NewValidationError(field, code, message string) *ValidationError {
	e := &ValidationError{}
	e.add(field, code, message)
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) hold for any *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Field returns the error recorded for field, if any.
func (e *ValidationError) Field(field string) (model.FieldError, bool) {
	for _, f := range e.Fields {
		if f.Field == field {
			return f, true
		}
	}
	return model.FieldError{}, false
}

// Has reports whether field has been rejected.
func (e *ValidationError) Has(field string) bool {
	_, ok := e.Field(field)
	return ok
}

// add records the first failure for a field; later failures are dropped.
func (e *ValidationError) add(field, code, message string) {
	if e.Has(field) {
		return
	}
	e.Fields = append(e.Fields, model.FieldError{Field: field, Code: code, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
