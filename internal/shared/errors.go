package shared

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks input rejected before any state change.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks requests that collide with current state.
	ErrConflict = errors.New("conflict")
	// ErrInvariant marks an internal consistency failure; the unit of work is rolled back.
	ErrInvariant = errors.New("invariant violated")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// ValidationError collects field level messages.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError with a single field message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add records a field message.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// Err returns nil when no field failed.
func (e *ValidationError) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Details(), "; ")
}

// Details lists messages ordered by field.
func (e *ValidationError) Details() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+": "+e.Fields[k])
	}
	return out
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// UserSafeMessage returns a message that can be shown to end users.
func UserSafeMessage(err error) string {
	var detailed interface{ Details() []string }
	switch {
	case err == nil:
		return ""
	case errors.As(err, &detailed):
		return strings.Join(detailed.Details(), "; ")
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrValidation), errors.Is(err, ErrConflict):
		return err.Error()
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid email or password"
	default:
		return "an unexpected error occurred"
	}
}
