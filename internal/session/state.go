package session

import (
	"errors"
	"fmt"
)

// Kind is the tag of the session state.
type Kind string

const (
	KindIdle       Kind = "idle"
	KindLoading    Kind = "loading"
	KindInProgress Kind = "in_progress"
	KindSubmitting Kind = "submitting"
	KindCompleted  Kind = "completed"
	KindFailed     Kind = "failed"
)

// Reason explains a Failed state.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonStartFailed Reason = "start_failed"
	ReasonExpired     Reason = "expired"
	ReasonCancelled   Reason = "cancelled"
)

// State is the tagged session state. Paused is meaningful only for
// InProgress and Submitting (where it remembers the pre-submit value);
// Reason only for Failed. TimeUp marks an attempt whose clock ran out but
// whose forced submission has not gone through yet: it only accepts submit.
type State struct {
	Kind   Kind   `json:"kind"`
	Paused bool   `json:"paused"`
	TimeUp bool   `json:"time_up,omitempty"`
	Reason Reason `json:"reason,omitempty"`
}

// Terminal reports whether the attempt has ended.
func (s State) Terminal() bool {
	return s.Kind == KindCompleted || s.Kind == KindFailed
}

// Active reports whether the attempt is live (answerable or submitting).
func (s State) Active() bool {
	return s.Kind == KindInProgress || s.Kind == KindSubmitting
}

// Event drives Transition.
type Event string

const (
	EventLoad       Event = "load"
	EventLoaded     Event = "loaded"
	EventLoadFailed Event = "load_failed"
	EventPause      Event = "pause"
	EventResume     Event = "resume"
	EventSubmit     Event = "submit"
	EventAccepted   Event = "accepted"
	EventRejected   Event = "rejected"
	EventExpired    Event = "expired"
	EventTimeUp     Event = "time_up"
	EventCancel     Event = "cancel"
)

// ErrInvalidTransition is returned for events not allowed in the current state.
var ErrInvalidTransition = errors.New("invalid session transition")

// Idle is the initial state.
var Idle = State{Kind: KindIdle}

// Transition is the pure transition function of the session state machine.
func Transition(s State, ev Event) (State, error) {
	switch {
	case s.Kind == KindIdle && ev == EventLoad:
		return State{Kind: KindLoading}, nil

	case s.Kind == KindLoading && ev == EventLoaded:
		return State{Kind: KindInProgress}, nil
	case s.Kind == KindLoading && ev == EventLoadFailed:
		return State{Kind: KindFailed, Reason: ReasonStartFailed}, nil
	case s.Kind == KindLoading && ev == EventExpired:
		return State{Kind: KindFailed, Reason: ReasonExpired}, nil

	case s.Kind == KindInProgress && ev == EventPause && !s.Paused && !s.TimeUp:
		return State{Kind: KindInProgress, Paused: true}, nil
	case s.Kind == KindInProgress && ev == EventResume && s.Paused && !s.TimeUp:
		return State{Kind: KindInProgress}, nil
	case s.Kind == KindInProgress && ev == EventSubmit:
		return State{Kind: KindSubmitting, Paused: s.Paused, TimeUp: s.TimeUp}, nil
	case s.Kind == KindInProgress && ev == EventTimeUp:
		return State{Kind: KindInProgress, TimeUp: true}, nil

	case s.Kind == KindSubmitting && ev == EventAccepted:
		return State{Kind: KindCompleted}, nil
	case s.Kind == KindSubmitting && ev == EventRejected:
		return State{Kind: KindInProgress, Paused: s.Paused, TimeUp: s.TimeUp}, nil

	case s.Active() && ev == EventExpired:
		return State{Kind: KindFailed, Reason: ReasonExpired}, nil

	case !s.Terminal() && ev == EventCancel:
		return State{Kind: KindFailed, Reason: ReasonCancelled}, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, s.Kind)
}
