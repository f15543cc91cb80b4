package apperr

import "errors"

// publicError pairs a kind with a message that is safe to show to callers.
type publicError struct {
	kind    error
	message string
}

func (e *publicError) Error() string { return e.message }
func (e *publicError) Unwrap() error { return e.kind }

// PublicMessage returns the caller-safe message attached by Conflict or NotFound, if any.
func PublicMessage(err error) (string, bool) {
	var pe *publicError
	if errors.As(err, &pe) {
		return pe.message, true
	}
	return "", false
}

// Conflict returns an error matching ErrConflict whose message is returned to the caller.
func Conflict(message string) error {
	return &publicError{kind: ErrConflict, message: message}
}

// NotFound returns an error matching ErrNotFound with a caller-safe message,
// used when the missing row is not the one addressed by the request path.
func NotFound(message string) error {
	return &publicError{kind: ErrNotFound, message: message}
}
