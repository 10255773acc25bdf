package triage

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIntake matches every *InvalidIntakeError via errors.Is.
	ErrInvalidIntake = errors.New("invalid intake")

	// ErrVerdictNotFound is returned by stores when no verdict carries the
	// requested registration id.
	ErrVerdictNotFound = errors.New("verdict not found")
)

// InvalidIntakeError names the offending intake field.
type InvalidIntakeError struct {
	Field  string
	Reason string
}

func (e *InvalidIntakeError) Error() string {
	return fmt.Sprintf("invalid intake: %s %s", e.Field, e.Reason)
}

func (e *InvalidIntakeError) Is(target error) bool {
	return target == ErrInvalidIntake
}

func invalid(field, format string, args ...interface{}) *InvalidIntakeError {
	return &InvalidIntakeError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
