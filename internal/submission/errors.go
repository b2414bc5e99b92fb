package submission

import (
	"errors"
	"strings"
)

// Submit error kinds. Match with errors.Is.
var (
	ErrDuplicateSubmit  = errors.New("submission already made or in flight")
	ErrNetwork          = errors.New("could not reach the test server")
	ErrValidation       = errors.New("submission rejected")
	ErrAlreadySubmitted = errors.New("test already submitted")
	ErrExpired          = errors.New("test has expired")
)

// Error is a classified submit failure. Kind is one of the Err* values above,
// Err the underlying cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" && e.Message != e.Kind.Error() {
		return e.Kind.Error() + ": " + e.Message
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Resumable reports whether the session can be submitted again after err.
func Resumable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrValidation)
}

func mentionsExpiry(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "expired") || strings.Contains(m, "time is up") || strings.Contains(m, "deadline")
}

func mentionsAlreadySubmitted(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "already submitted") || strings.Contains(m, "already completed")
}
