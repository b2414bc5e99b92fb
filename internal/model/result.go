package model

import (
	"math"
	"strconv"
	"time"
)

// SubmissionResult is the outcome of one submit call.
type SubmissionResult struct {
	Success         bool     `json:"success"`
	ScorePercentage *float64 `json:"score_percentage"`
	Message         string   `json:"message,omitempty"`
	AutoSubmitted   bool     `json:"auto_submitted"`
}

// ScoreLabel renders the score for display. A nil score means grading is
// still running server-side.
func (r SubmissionResult) ScoreLabel() string {
	return FormatScore(r.ScorePercentage)
}

// FormatScore renders a nullable percentage as "67%" or "calculating".
func FormatScore(score *float64) string {
	if score == nil {
		return "calculating"
	}
	return strconv.FormatFloat(math.Round(*score), 'f', 0, 64) + "%"
}

// TestResult is one completed attempt as listed by the backend.
type TestResult struct {
	ID          AssignmentID `json:"id"`
	TestID      TestID       `json:"test_id,omitempty"`
	Title       string       `json:"title,omitempty"`
	Score       *float64     `json:"score"`
	Result      string       `json:"result,omitempty"`
	Feedback    string       `json:"feedback,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}
