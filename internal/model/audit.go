package model

import "time"

// Submission outcomes recorded in the audit trail.
const (
	AuditOutcomeAccepted = "accepted"
	AuditOutcomeRejected = "rejected"
)

// SubmissionAudit is one submit attempt as persisted for later review,
// manual and countdown-triggered alike.
type SubmissionAudit struct {
	CandidateKey  string       `json:"candidate_key"`
	AssignmentID  AssignmentID `json:"assignment_id"`
	AutoSubmitted bool         `json:"auto_submitted"`
	Outcome       string       `json:"outcome"`
	ErrorKind     string       `json:"error_kind,omitempty"`
	Message       string       `json:"message,omitempty"`
	Score         *float64     `json:"score,omitempty"`
	Answered      int          `json:"answered"`
	Remaining     int          `json:"remaining_seconds"`
	RecordedAt    time.Time    `json:"recorded_at"`
}
