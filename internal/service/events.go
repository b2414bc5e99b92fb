package service

import (
	"time"

	"github.com/stemsi/testcenter/internal/model"
	"github.com/stemsi/testcenter/internal/session"
)

// Session event types pushed to the candidate's stream.
const (
	EventState     = "state"
	EventTick      = "tick"
	EventSubmitted = "submitted"
	EventError     = "error"
)

// Event is one message on the candidate's stream.
type Event struct {
	Type             string                  `json:"type"`
	AssignmentID     model.AssignmentID      `json:"assignment_id"`
	RemainingSeconds *int                    `json:"remaining_seconds,omitempty"`
	Snapshot         *session.Snapshot       `json:"snapshot,omitempty"`
	Result           *model.SubmissionResult `json:"result,omitempty"`
	Message          string                  `json:"message,omitempty"`
	At               time.Time               `json:"at"`
}
