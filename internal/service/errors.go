package service

import (
	"errors"
)

// Start errors.
var (
	ErrAssignmentNotFound  = errors.New("assignment not found")
	ErrAssignmentExpired   = errors.New("assignment has expired")
	ErrAssignmentCompleted = errors.New("assignment already completed")
	ErrStartFailed         = errors.New("could not start test")
)

// ErrNoActiveSession is returned by session operations when the candidate
// has not started a test.
var ErrNoActiveSession = errors.New("no active test session")

// StartError explains why a test could not be started.
type StartError struct {
	AssignmentID string
	Kind         error
	Err          error
}

func (e *StartError) Error() string {
	if e.Err != nil {
		return e.Kind.Error() + ": " + e.Err.Error()
	}
	return e.Kind.Error()
}

func (e *StartError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
