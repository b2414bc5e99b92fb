package session

import (
	"github.com/stemsi/testcenter/internal/model"
	"github.com/stemsi/testcenter/internal/timer"
)

// Snapshot is an immutable view of a session for presentation.
type Snapshot struct {
	AssignmentID     model.AssignmentID      `json:"assignment_id"`
	TestID           model.TestID            `json:"test_id"`
	Title            string                  `json:"title"`
	State            State                   `json:"state"`
	Timer            timer.State             `json:"timer"`
	RemainingSeconds int                     `json:"remaining_seconds"`
	CurrentIndex     int                     `json:"current_index"`
	TotalQuestions   int                     `json:"total_questions"`
	ProgressPercent  int                     `json:"progress_percent"`
	Question         *model.Question         `json:"question,omitempty"`
	Answers          model.AnswerMap         `json:"answers"`
	Grid             []GridCell              `json:"grid"`
	Result           *model.SubmissionResult `json:"result,omitempty"`
	Error            string                  `json:"error,omitempty"`
}

// GridCell is one entry of the question-jump grid.
type GridCell struct {
	Index      int              `json:"index"`
	QuestionID model.QuestionID `json:"question_id"`
	Answered   bool             `json:"answered"`
	Current    bool             `json:"current"`
}

// Snapshot captures the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		AssignmentID:    s.assignment.ID,
		TestID:          s.assignment.TestID,
		Title:           s.assignment.DisplayTitle(),
		State:           s.state,
		Timer:           timer.StateIdle,
		CurrentIndex:    s.nav.Index(),
		TotalQuestions:  len(s.questions),
		ProgressPercent: s.nav.ProgressPercent(),
		Answers:         s.answers.Clone(),
		Grid:            make([]GridCell, 0, len(s.questions)),
		Error:           s.lastError,
	}
	if s.clock != nil {
		snap.Timer = s.clock.State()
		snap.RemainingSeconds = s.clock.Remaining()
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	if len(s.questions) > 0 {
		q := s.questions[s.nav.Index()]
		snap.Question = &q
	}
	for i, q := range s.questions {
		_, answered := s.answers[q.ID]
		snap.Grid = append(snap.Grid, GridCell{
			Index:      i,
			QuestionID: q.ID,
			Answered:   answered,
			Current:    i == s.nav.Index(),
		})
	}
	return snap
}
