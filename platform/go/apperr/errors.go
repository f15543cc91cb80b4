// Package apperr defines the error kinds shared by every domain service.
//
// Domains wrap these kinds with their own sentinels so callers can match
// either the specific error or the generic kind with errors.Is:
//
//	var ErrNotFound = fmt.Errorf("customer: %w", apperr.ErrNotFound)
package apperr

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// Add appends a message for field. It is a no-op on a nil map.
func (f FieldErrors) Add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}

// Err returns a *ValidationError when at least one field failed, nil otherwise.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	if len(v.Fields) == 0 {
		return "validation error"
	}
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "validation error: " + strings.Join(keys, ", ")
}

// Invalid builds a single-field validation error.
func Invalid(field, message string) error {
	fe := FieldErrors{}
	fe.Add(field, message)
	return &ValidationError{Fields: fe}
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
