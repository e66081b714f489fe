package inventory

import (
	"errors"
	"fmt"
)

// ErrCourseNotFound is returned when a course ID resolves to nothing.
var ErrCourseNotFound = errors.New("course not found")

// ErrPatientNotFound is returned when a patient ID resolves to nothing.
var ErrPatientNotFound = errors.New("patient not found")

// ValidationError reports a rejected submission. The offending field
// is named so the caller can surface an inline message; no state is
// mutated when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
