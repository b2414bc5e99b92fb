package websocket

import (
	"encoding/json"

	"github.com/stemsi/testcenter/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer   Action = "answer"
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
	ActionGoTo     Action = "goto"
	ActionPause    Action = "pause"
	ActionResume   Action = "resume"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestPayload is one client message. Fields beyond Action are read only
// by the actions that need them.
type RequestPayload struct {
	Action      Action           `json:"action"`
	QuestionID  model.QuestionID `json:"question_id,omitempty"`
	OptionIndex *int             `json:"option_index,omitempty"`
	Index       *int             `json:"index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventState     Event = "state"
	EventSubmitted Event = "submitted"
	EventPong      Event = "pong"
	// EventStream wraps a message relayed from the session event bus.
	EventStream Event = "stream"
)

// StateResponse answers an action with the resulting session view.
type StateResponse struct {
	Event    Event       `json:"event"`
	Action   Action      `json:"action,omitempty"`
	Snapshot interface{} `json:"snapshot"`
}

type SubmittedResponse struct {
	Event      Event                   `json:"event"`
	Result     *model.SubmissionResult `json:"result"`
	ScoreLabel string                  `json:"score_label"`
	Snapshot   interface{}             `json:"snapshot"`
}

// StreamResponse carries a raw event published by the session service.
type StreamResponse struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
