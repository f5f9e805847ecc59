package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound            = fmt.Errorf("not found")
	ErrAlreadyExists       = fmt.Errorf("already exists")
	ErrAuthInvalid         = fmt.Errorf("invalid token")
	ErrAuthInactive        = fmt.Errorf("inactive user")
	ErrAuthTimeout         = fmt.Errorf("connection timeout")
	ErrNotAuthorized       = fmt.Errorf("authorization required")
	ErrAlreadyAuthorized   = fmt.Errorf("already authorized")
	ErrEnvelopeMalformed   = fmt.Errorf("malformed envelope")
	ErrTypeUnknown         = fmt.Errorf("type route not found")
	ErrTransportClosed     = fmt.Errorf("transport closed")
	ErrSinkFull            = fmt.Errorf("sink buffer is full")
	ErrInvalidPayload      = fmt.Errorf("invalid payload")
	ErrInvalidParticipants = fmt.Errorf("a conversation needs exactly two distinct participants")
	ErrTokenGeneration     = fmt.Errorf("token generation failed")
	ErrWorkerPanic         = fmt.Errorf("worker panic")
	ErrEmptyWords          = fmt.Errorf("no words have been found")
)

// ValidationError carries field level messages back to the client.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%s (%s)", ErrInvalidPayload, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidPayload
}

// Is and As forward to the standard library so callers importing this package
// keep a single errors identifier.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
