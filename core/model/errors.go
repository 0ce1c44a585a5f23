package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a validation failure for API consumers and metrics.
type ErrorKind string

const (
	KindInvalidPayload    ErrorKind = "InvalidPayload"
	KindMissingField      ErrorKind = "MissingField"
	KindInvalidCoordinate ErrorKind = "InvalidCoordinate"
	KindInvalidSpeed      ErrorKind = "InvalidSpeed"
	KindInvalidCommand    ErrorKind = "InvalidCommand"
)

// ValidationError rejects a payload before it reaches storage. Kind is a
// stable machine-readable discriminator; Message is for humans.
type ValidationError struct {
	Kind    ErrorKind `json:"kind"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewInvalidPayload reports a request body that could not be decoded at all.
func NewInvalidPayload(msg string) *ValidationError {
	return &ValidationError{
		Kind:    KindInvalidPayload,
		Message: msg,
	}
}

// NewMissingField reports a required field that was absent or empty.
func NewMissingField(field string) *ValidationError {
	return &ValidationError{
		Kind:    KindMissingField,
		Field:   field,
		Message: fmt.Sprintf("missing required field %q", field),
	}
}

// NewInvalidCoordinate reports a GPS component that is not a finite number.
func NewInvalidCoordinate(field string) *ValidationError {
	return &ValidationError{
		Kind:    KindInvalidCoordinate,
		Field:   field,
		Message: fmt.Sprintf("field %q must be a finite number", field),
	}
}

// NewInvalidSpeed reports a speed outside the plausible range for a bus.
func NewInvalidSpeed(msg string) *ValidationError {
	return &ValidationError{
		Kind:    KindInvalidSpeed,
		Field:   "speed",
		Message: msg,
	}
}

// NewInvalidCommand reports a command name outside the closed allow-list.
func NewInvalidCommand(got string, allowed []string) *ValidationError {
	return &ValidationError{
		Kind:    KindInvalidCommand,
		Field:   "command",
		Message: fmt.Sprintf("unknown command %q, allowed: %s", got, strings.Join(allowed, ", ")),
	}
}

// AsValidation unwraps err into a *ValidationError when one is present.
func AsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
