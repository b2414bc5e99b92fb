// Package session holds the in-memory state of one exam attempt.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/stemsi/testcenter/internal/model"
	"github.com/stemsi/testcenter/internal/navigation"
	"github.com/stemsi/testcenter/internal/timer"
)

// Session errors.
var (
	ErrNotActive      = errors.New("session is not active")
	ErrPaused         = errors.New("session is paused")
	ErrSubmitInFlight = errors.New("submission already in flight")
	ErrTimeUp         = errors.New("time is up")
	ErrInvalidAnswer  = errors.New("invalid answer")
	ErrNoQuestions    = errors.New("test has no questions")
)

// Session is one attempt: assignment, questions, answers, clock and pointer.
// Every mutation goes through mu; the timer is only ever locked after mu.
type Session struct {
	mu         sync.Mutex
	assignment model.TestAssignment
	questions  []model.Question
	positions  map[model.QuestionID]int
	answers    model.AnswerMap
	nav        *navigation.Navigator
	clock      *timer.Engine
	state      State
	result     *model.SubmissionResult
	lastError  string
}

// New creates an idle session for an assignment.
func New(a model.TestAssignment) *Session {
	return &Session{
		assignment: a,
		answers:    model.AnswerMap{},
		nav:        navigation.New(0),
		state:      Idle,
	}
}

// AssignmentID returns the id submissions are addressed to.
func (s *Session) AssignmentID() model.AssignmentID {
	return s.assignment.ID
}

// Assignment returns the assignment this session was created for.
func (s *Session) Assignment() model.TestAssignment {
	return s.assignment
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Clock returns the countdown, or nil before Begin.
func (s *Session) Clock() *timer.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// BeginLoad marks the start request as in flight (Idle → Loading).
func (s *Session) BeginLoad() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(EventLoad)
}

// Begin initializes the attempt from a start response and starts the
// countdown. Restored answers are kept only for known questions and valid
// option indices.
func (s *Session) Begin(questions []model.Question, timeLimitSeconds int, restored model.AnswerMap, onExpire func()) error {
	if len(questions) == 0 {
		s.FailLoad(false, ErrNoQuestions.Error())
		return ErrNoQuestions
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.apply(EventLoaded); err != nil {
		return err
	}

	s.questions = questions
	s.positions = make(map[model.QuestionID]int, len(questions))
	for i, q := range questions {
		s.positions[q.ID] = i
	}
	s.answers = model.AnswerMap{}
	for qid, idx := range restored {
		if pos, ok := s.positions[qid]; ok && s.questions[pos].ValidOption(idx) {
			s.answers[qid] = idx
		}
	}
	s.nav = navigation.New(len(questions))
	s.clock = timer.New(onExpire)
	s.lastError = ""
	return s.clock.Start(timeLimitSeconds)
}

// FailLoad records a failed start (Loading → Failed).
func (s *Session) FailLoad(expired bool, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := EventLoadFailed
	if expired {
		ev = EventExpired
	}
	if s.apply(ev) == nil {
		s.lastError = msg
	}
}

// SetAnswer records optionIndex as the answer to questionID.
func (s *Session) SetAnswer(questionID model.QuestionID, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAnswerable(); err != nil {
		return err
	}
	pos, ok := s.positions[questionID]
	if !ok {
		return fmt.Errorf("%w: unknown question %s", ErrInvalidAnswer, questionID)
	}
	if !s.questions[pos].ValidOption(optionIndex) {
		return fmt.Errorf("%w: option %d out of range for question %s", ErrInvalidAnswer, optionIndex, questionID)
	}
	s.answers[questionID] = optionIndex
	return nil
}

// Pause freezes the clock and blocks navigation and answering.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Kind != KindInProgress {
		return ErrNotActive
	}
	if s.timeUp() {
		return ErrTimeUp
	}
	if err := s.apply(EventPause); err != nil {
		return err
	}
	s.clock.Pause()
	return nil
}

// Resume restarts the clock after Pause.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Kind != KindInProgress {
		return ErrNotActive
	}
	if s.timeUp() {
		return ErrTimeUp
	}
	if err := s.apply(EventResume); err != nil {
		return err
	}
	s.clock.Resume()
	return nil
}

// Next moves to the next question.
func (s *Session) Next() (int, error) {
	return s.navigate(func(n *navigation.Navigator) int { return n.Next() })
}

// Previous moves to the previous question.
func (s *Session) Previous() (int, error) {
	return s.navigate(func(n *navigation.Navigator) int { return n.Previous() })
}

// GoTo jumps to question i, clamped into range.
func (s *Session) GoTo(i int) (int, error) {
	return s.navigate(func(n *navigation.Navigator) int { return n.GoTo(i) })
}

func (s *Session) navigate(move func(*navigation.Navigator) int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAnswerable(); err != nil {
		return s.nav.Index(), err
	}
	return move(s.nav), nil
}

// BeginSubmit is the in-flight guard: it atomically moves InProgress →
// Submitting and returns a copy of the answers to send.
func (s *Session) BeginSubmit() (model.AnswerMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state.Kind {
	case KindSubmitting:
		return nil, ErrSubmitInFlight
	case KindInProgress:
	default:
		return nil, ErrNotActive
	}
	if err := s.apply(EventSubmit); err != nil {
		return nil, err
	}
	return s.answers.Clone(), nil
}

// CompleteSubmit records an accepted submission and stops the clock.
func (s *Session) CompleteSubmit(result model.SubmissionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.apply(EventAccepted) != nil {
		return
	}
	s.result = &result
	s.lastError = ""
	s.clock.Stop()
}

// AbortSubmit records a rejected submission. The attempt stays resumable
// with its answers intact unless the assignment expired server-side. If the
// clock ran out meanwhile, the attempt stays TimeUp: answers are frozen and
// only another submit is accepted.
func (s *Session) AbortSubmit(expired bool, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := EventRejected
	if expired {
		ev = EventExpired
	}
	if s.apply(ev) != nil {
		return
	}
	s.lastError = msg
	if expired {
		s.clock.Stop()
		return
	}
	if s.clock != nil && s.clock.State() == timer.StateExpired {
		_ = s.apply(EventTimeUp)
	}
}

// TimeUp reports whether the clock ran out before a submission went through.
func (s *Session) TimeUp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Kind == KindInProgress && s.timeUp()
}

// Cancel ends the attempt softly; the backend keeps it resumable.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.apply(EventCancel) != nil {
		return
	}
	if s.clock != nil {
		s.clock.Stop()
	}
}

func (s *Session) requireAnswerable() error {
	if s.state.Kind != KindInProgress {
		return ErrNotActive
	}
	if s.timeUp() {
		return ErrTimeUp
	}
	if s.state.Paused {
		return ErrPaused
	}
	return nil
}

// timeUp must be called with mu held. An expired clock counts even before
// the expiry callback has moved the session on.
func (s *Session) timeUp() bool {
	return s.state.TimeUp || (s.clock != nil && s.clock.State() == timer.StateExpired)
}

// apply must be called with mu held.
func (s *Session) apply(ev Event) error {
	next, err := Transition(s.state, ev)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}
