package model

import "time"

// AssignmentStatus enumerates the lifecycle of a test assignment.
type AssignmentStatus string

const (
	AssignmentStatusPending    AssignmentStatus = "pending"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
	AssignmentStatusExpired    AssignmentStatus = "expired"
)

// TestAssignment is one exam instance assigned to a candidate.
type TestAssignment struct {
	ID                 AssignmentID        `json:"id"`
	TestID             TestID              `json:"test_id"`
	Title              string              `json:"title,omitempty"`
	Status             AssignmentStatus    `json:"status"`
	AssignedAt         *time.Time          `json:"assigned_at,omitempty"`
	ExpiresAt          *time.Time          `json:"expires_at,omitempty"`
	StartedAt          *time.Time          `json:"started_at,omitempty"`
	CompletedAt        *time.Time          `json:"completed_at,omitempty"`
	TimeLimitMinutes   int                 `json:"time_limit,omitempty"`
	TotalQuestions     int                 `json:"total_questions,omitempty"`
	Test               *TestDefinition     `json:"test,omitempty"`
	RecruitmentRequest *RecruitmentRequest `json:"recruitment_request,omitempty"`
}

// TestDefinition is the nested test object some endpoints embed.
type TestDefinition struct {
	ID             TestID `json:"id,omitempty"`
	Title          string `json:"title,omitempty"`
	TimeLimit      int    `json:"time_limit,omitempty"`
	TotalQuestions int    `json:"total_questions,omitempty"`
}

// RecruitmentRequest is the job opening an assignment was issued for.
type RecruitmentRequest struct {
	Title    string `json:"title,omitempty"`
	JobTitle string `json:"job_title,omitempty"`
}

// DisplayTitle picks the first non-empty title the backend provided.
func (a TestAssignment) DisplayTitle() string {
	switch {
	case a.Title != "":
		return a.Title
	case a.Test != nil && a.Test.Title != "":
		return a.Test.Title
	case a.RecruitmentRequest != nil && a.RecruitmentRequest.Title != "":
		return a.RecruitmentRequest.Title
	case a.RecruitmentRequest != nil && a.RecruitmentRequest.JobTitle != "":
		return a.RecruitmentRequest.JobTitle
	}
	return "Test " + a.ID.String()
}

// TimeLimit returns the time limit in minutes, preferring the top-level field.
func (a TestAssignment) TimeLimit() int {
	if a.TimeLimitMinutes > 0 {
		return a.TimeLimitMinutes
	}
	if a.Test != nil {
		return a.Test.TimeLimit
	}
	return 0
}

// IsExpired reports whether the assignment can no longer be taken at now.
// It is recomputed on every call; callers pass their own clock reading.
func IsExpired(a TestAssignment, now time.Time) bool {
	if a.Status == AssignmentStatusExpired {
		return true
	}
	return a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}

// EffectiveStatus returns expired when IsExpired holds, else the stored status.
func (a TestAssignment) EffectiveStatus(now time.Time) AssignmentStatus {
	if a.Status != AssignmentStatusCompleted && IsExpired(a, now) {
		return AssignmentStatusExpired
	}
	return a.Status
}

// Startable reports whether a start (or continue) may be offered at now.
func (a TestAssignment) Startable(now time.Time) bool {
	switch a.EffectiveStatus(now) {
	case AssignmentStatusPending, AssignmentStatusInProgress:
		return true
	}
	return false
}
