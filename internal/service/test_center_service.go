package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/testcenter/internal/apiclient"
	"github.com/stemsi/testcenter/internal/model"
	"github.com/stemsi/testcenter/internal/session"
	"github.com/stemsi/testcenter/internal/submission"
)

// CandidateAPI is the subset of the backend client the service uses.
type CandidateAPI interface {
	AvailableTests(ctx context.Context) ([]model.TestAssignment, error)
	TestResults(ctx context.Context) ([]model.TestResult, error)
	StartTest(ctx context.Context, id model.AssignmentID) (*model.StartTestResponse, error)
	submission.Submitter
}

// AnswerCache autosaves answers so an attempt survives a restart.
type AnswerCache interface {
	Save(ctx context.Context, candidateKey string, assignmentID model.AssignmentID, questionID model.QuestionID, optionIndex int) error
	Load(ctx context.Context, candidateKey string, assignmentID model.AssignmentID) (model.AnswerMap, error)
	Clear(ctx context.Context, candidateKey string, assignmentID model.AssignmentID) error
}

// EventPublisher delivers session events to the candidate's stream.
type EventPublisher interface {
	Publish(ctx context.Context, candidateKey string, event interface{}) error
}

// AuditSink records submission attempts.
type AuditSink interface {
	Record(ctx context.Context, a model.SubmissionAudit) error
}

// Candidate identifies the person taking tests and carries the backend
// client authenticated as them.
type Candidate struct {
	Key string
	API CandidateAPI
}

// Options tunes the service. Zero values fall back to defaults.
type Options struct {
	TickInterval  time.Duration
	SubmitTimeout time.Duration
	// RetryInterval spaces retries of a forced submit that failed to reach
	// the backend after time ran out.
	RetryInterval time.Duration
	Now           func() time.Time
}

// AvailableTest is an assignment as shown in the test list.
type AvailableTest struct {
	model.TestAssignment
	EffectiveStatus model.AssignmentStatus `json:"effective_status"`
	Expired         bool                   `json:"expired"`
	CanStart        bool                   `json:"can_start"`
	Badge           string                 `json:"badge,omitempty"`
}

type activeSession struct {
	cand     Candidate
	sess     *session.Session
	pipeline *submission.Pipeline

	// ctx is cancelled when the session is torn down; it bounds the clock
	// loop and forced-submit retries. Both are set before the session is
	// shared and never reassigned.
	ctx    context.Context
	cancel context.CancelFunc
}

// TestCenterService holds at most one active session per candidate and
// drives its countdown.
type TestCenterService struct {
	cache  AnswerCache
	events EventPublisher
	audit  AuditSink
	opts   Options
	log    zerolog.Logger

	mu     sync.Mutex
	active map[string]*activeSession
}

// NewTestCenterService creates a new TestCenterService. cache, events and
// audit may be nil; the terminal client runs without them.
func NewTestCenterService(cache AnswerCache, events EventPublisher, audit AuditSink, opts Options, log zerolog.Logger) *TestCenterService {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &TestCenterService{
		cache:  cache,
		events: events,
		audit:  audit,
		opts:   opts,
		log:    log.With().Str("component", "test_center").Logger(),
		active: make(map[string]*activeSession),
	}
}

// ListAvailable returns the candidate's assignments annotated with expiry.
// Expired assignments carry an "Expired" badge and cannot be started.
func (s *TestCenterService) ListAvailable(ctx context.Context, cand Candidate) ([]AvailableTest, error) {
	assignments, err := cand.API.AvailableTests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list available tests: %w", err)
	}

	now := s.opts.Now()
	out := make([]AvailableTest, 0, len(assignments))
	for _, a := range assignments {
		t := AvailableTest{
			TestAssignment:  a,
			EffectiveStatus: a.EffectiveStatus(now),
			Expired:         model.IsExpired(a, now),
			CanStart:        a.Startable(now),
		}
		switch {
		case t.EffectiveStatus == model.AssignmentStatusCompleted:
			t.Badge = "Completed"
		case t.Expired:
			t.Badge = "Expired"
		case a.Status == model.AssignmentStatusInProgress:
			t.Badge = "In progress"
		}
		out = append(out, t)
	}
	return out, nil
}

// ListResults returns the candidate's completed attempts.
func (s *TestCenterService) ListResults(ctx context.Context, cand Candidate) ([]model.TestResult, error) {
	results, err := cand.API.TestResults(ctx)
	if err != nil {
		return nil, fmt.Errorf("list test results: %w", err)
	}
	return results, nil
}

// Start begins or resumes an assignment and starts its countdown. Any
// previous session of the candidate is discarded.
func (s *TestCenterService) Start(ctx context.Context, cand Candidate, id model.AssignmentID) (session.Snapshot, error) {
	assignments, err := cand.API.AvailableTests(ctx)
	if err != nil {
		return session.Snapshot{}, &StartError{AssignmentID: id.String(), Kind: ErrStartFailed, Err: err}
	}

	var found *model.TestAssignment
	for i := range assignments {
		if assignments[i].ID == id {
			found = &assignments[i]
			break
		}
	}
	if found == nil {
		return session.Snapshot{}, &StartError{AssignmentID: id.String(), Kind: ErrAssignmentNotFound}
	}

	now := s.opts.Now()
	switch {
	case found.EffectiveStatus(now) == model.AssignmentStatusCompleted:
		return session.Snapshot{}, &StartError{AssignmentID: id.String(), Kind: ErrAssignmentCompleted}
	case model.IsExpired(*found, now):
		return session.Snapshot{}, &StartError{AssignmentID: id.String(), Kind: ErrAssignmentExpired}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	as := &activeSession{
		cand:     cand,
		sess:     session.New(*found),
		pipeline: submission.NewPipeline(cand.API, s.opts.SubmitTimeout, s.log),
		ctx:      runCtx,
		cancel:   cancel,
	}
	if err := as.sess.BeginLoad(); err != nil {
		cancel()
		return session.Snapshot{}, &StartError{AssignmentID: id.String(), Kind: ErrStartFailed, Err: err}
	}
	s.replace(cand.Key, as)

	log := s.log.With().Str("candidate", cand.Key).Str("assignment_id", id.String()).Logger()

	resp, err := cand.API.StartTest(ctx, id)
	if err != nil {
		expired := startExpired(err)
		as.sess.FailLoad(expired, userMessage(err))
		s.publishState(as)
		log.Warn().Err(err).Bool("expired", expired).Msg("Start test failed")
		kind := ErrStartFailed
		if expired {
			kind = ErrAssignmentExpired
		}
		return as.sess.Snapshot(), &StartError{AssignmentID: id.String(), Kind: kind, Err: err}
	}

	var restored model.AnswerMap
	if s.cache != nil && found.Status == model.AssignmentStatusInProgress {
		if restored, err = s.cache.Load(ctx, cand.Key, id); err != nil {
			log.Warn().Err(err).Msg("Could not restore autosaved answers")
		}
	}

	minutes := resp.Test.TimeLimit
	if minutes <= 0 {
		minutes = found.TimeLimit()
	}

	if err := as.sess.Begin(resp.Questions, minutes*60, restored, func() { s.expire(as) }); err != nil {
		s.publishState(as)
		return as.sess.Snapshot(), &StartError{AssignmentID: id.String(), Kind: ErrStartFailed, Err: err}
	}

	go s.runClock(as.ctx, as)

	log.Info().
		Int("questions", len(resp.Questions)).
		Int("time_limit_minutes", minutes).
		Int("restored_answers", len(restored)).
		Msg("Test started")

	snap := as.sess.Snapshot()
	s.publish(as, Event{Type: EventState, Snapshot: &snap})
	return snap, nil
}

// Answer records an answer and autosaves it.
func (s *TestCenterService) Answer(ctx context.Context, candidateKey string, questionID model.QuestionID, optionIndex int) (session.Snapshot, error) {
	as, err := s.lookup(candidateKey)
	if err != nil {
		return session.Snapshot{}, err
	}
	if err := as.sess.SetAnswer(questionID, optionIndex); err != nil {
		return as.sess.Snapshot(), err
	}
	if s.cache != nil {
		if err := s.cache.Save(ctx, candidateKey, as.sess.AssignmentID(), questionID, optionIndex); err != nil {
			s.log.Warn().Err(err).Str("candidate", candidateKey).Msg("Autosave failed")
		}
	}
	return s.publishState(as), nil
}

// Pause freezes the countdown and blocks answering and navigation.
func (s *TestCenterService) Pause(candidateKey string) (session.Snapshot, error) {
	return s.mutate(candidateKey, (*session.Session).Pause)
}

// Resume lifts a pause.
func (s *TestCenterService) Resume(candidateKey string) (session.Snapshot, error) {
	return s.mutate(candidateKey, (*session.Session).Resume)
}

// Next moves to the following question, clamped at the last one.
func (s *TestCenterService) Next(candidateKey string) (session.Snapshot, error) {
	return s.mutate(candidateKey, func(ss *session.Session) error {
		_, err := ss.Next()
		return err
	})
}

// Previous moves to the preceding question, clamped at the first one.
func (s *TestCenterService) Previous(candidateKey string) (session.Snapshot, error) {
	return s.mutate(candidateKey, func(ss *session.Session) error {
		_, err := ss.Previous()
		return err
	})
}

// GoTo jumps to question i, clamped into range.
func (s *TestCenterService) GoTo(candidateKey string, i int) (session.Snapshot, error) {
	return s.mutate(candidateKey, func(ss *session.Session) error {
		_, err := ss.GoTo(i)
		return err
	})
}

// Submit submits the candidate's session manually.
func (s *TestCenterService) Submit(ctx context.Context, candidateKey string) (*model.SubmissionResult, session.Snapshot, error) {
	as, err := s.lookup(candidateKey)
	if err != nil {
		return nil, session.Snapshot{}, err
	}
	res, err := s.submit(ctx, as, false)
	return res, as.sess.Snapshot(), err
}

// Cancel discards the candidate's session. The backend keeps the attempt,
// so it can be resumed with Start.
func (s *TestCenterService) Cancel(candidateKey string) error {
	s.mu.Lock()
	as, ok := s.active[candidateKey]
	delete(s.active, candidateKey)
	s.mu.Unlock()

	if !ok {
		return ErrNoActiveSession
	}
	as.stop()
	s.publishState(as)
	s.log.Info().Str("candidate", candidateKey).Str("assignment_id", as.sess.AssignmentID().String()).Msg("Session cancelled")
	return nil
}

// Snapshot returns the candidate's current session view.
func (s *TestCenterService) Snapshot(candidateKey string) (session.Snapshot, error) {
	as, err := s.lookup(candidateKey)
	if err != nil {
		return session.Snapshot{}, err
	}
	return as.sess.Snapshot(), nil
}

// Shutdown stops every countdown. Sessions are not submitted.
func (s *TestCenterService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, as := range s.active {
		as.stop()
		delete(s.active, key)
	}
}

func (s *TestCenterService) mutate(candidateKey string, fn func(*session.Session) error) (session.Snapshot, error) {
	as, err := s.lookup(candidateKey)
	if err != nil {
		return session.Snapshot{}, err
	}
	if err := fn(as.sess); err != nil {
		return as.sess.Snapshot(), err
	}
	return s.publishState(as), nil
}

func (s *TestCenterService) lookup(candidateKey string) (*activeSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	as, ok := s.active[candidateKey]
	if !ok {
		return nil, ErrNoActiveSession
	}
	return as, nil
}

func (s *TestCenterService) replace(candidateKey string, as *activeSession) {
	s.mu.Lock()
	prev := s.active[candidateKey]
	s.active[candidateKey] = as
	s.mu.Unlock()

	if prev != nil {
		prev.stop()
	}
}

func (as *activeSession) stop() {
	as.sess.Cancel()
	as.cancel()
}

// runClock ticks the countdown and streams the remaining time until the
// clock stops or ctx is cancelled.
func (s *TestCenterService) runClock(ctx context.Context, as *activeSession) {
	clock := as.sess.Clock()
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-clock.Done():
			return
		case <-ticker.C:
			before := clock.Remaining()
			clock.Tick()
			if remaining := clock.Remaining(); remaining != before {
				s.publish(as, Event{Type: EventTick, RemainingSeconds: &remaining})
			}
		}
	}
}

// expire runs when the countdown reaches zero.
func (s *TestCenterService) expire(as *activeSession) {
	s.log.Info().
		Str("candidate", as.cand.Key).
		Str("assignment_id", as.sess.AssignmentID().String()).
		Msg("Time is up, auto-submitting")
	s.submit(as.ctx, as, true)
}

func (s *TestCenterService) submit(ctx context.Context, as *activeSession, auto bool) (*model.SubmissionResult, error) {
	auto = auto || as.sess.TimeUp()
	answered := len(as.sess.Snapshot().Answers)
	remaining := 0
	if clock := as.sess.Clock(); clock != nil {
		remaining = clock.Remaining()
	}

	res, err := as.pipeline.Submit(ctx, as.sess, auto)
	if errors.Is(err, submission.ErrDuplicateSubmit) {
		return nil, err
	}

	s.recordAudit(as, auto, answered, remaining, res, err)

	snap := as.sess.Snapshot()
	if err != nil {
		s.publish(as, Event{Type: EventError, Snapshot: &snap, Message: err.Error()})
	} else {
		s.publish(as, Event{Type: EventSubmitted, Snapshot: &snap, Result: res})
	}
	if errors.Is(err, submission.ErrNetwork) && snap.State.TimeUp {
		s.retryForced(as)
	}
	if snap.State.Terminal() && s.cache != nil {
		if cerr := s.cache.Clear(context.Background(), as.cand.Key, as.sess.AssignmentID()); cerr != nil {
			s.log.Warn().Err(cerr).Str("candidate", as.cand.Key).Msg("Could not clear autosaved answers")
		}
	}
	return res, err
}

// retryForced re-arms the forced submit of an attempt whose time ran out
// but whose submission never reached the backend. It keeps retrying until
// one goes through or the session is torn down.
func (s *TestCenterService) retryForced(as *activeSession) {
	s.log.Warn().
		Str("candidate", as.cand.Key).
		Str("assignment_id", as.sess.AssignmentID().String()).
		Dur("retry_in", s.opts.RetryInterval).
		Msg("Forced submit failed, retrying")

	go func() {
		t := time.NewTimer(s.opts.RetryInterval)
		defer t.Stop()
		select {
		case <-as.ctx.Done():
			return
		case <-t.C:
		}
		s.submit(as.ctx, as, true)
	}()
}

func (s *TestCenterService) recordAudit(as *activeSession, auto bool, answered, remaining int, res *model.SubmissionResult, err error) {
	if s.audit == nil {
		return
	}
	a := model.SubmissionAudit{
		CandidateKey:  as.cand.Key,
		AssignmentID:  as.sess.AssignmentID(),
		AutoSubmitted: auto,
		Outcome:       model.AuditOutcomeAccepted,
		Answered:      answered,
		Remaining:     remaining,
		RecordedAt:    s.opts.Now(),
	}
	if res != nil {
		a.Score = res.ScorePercentage
		a.Message = res.Message
	}
	if err != nil {
		a.Outcome = model.AuditOutcomeRejected
		a.ErrorKind = errorKind(err)
		a.Message = err.Error()
	}
	if aerr := s.audit.Record(context.Background(), a); aerr != nil {
		s.log.Error().Err(aerr).Str("assignment_id", a.AssignmentID.String()).Msg("Could not record submission audit")
	}
}

func (s *TestCenterService) publishState(as *activeSession) session.Snapshot {
	snap := as.sess.Snapshot()
	s.publish(as, Event{Type: EventState, Snapshot: &snap})
	return snap
}

func (s *TestCenterService) publish(as *activeSession, ev Event) {
	if s.events == nil {
		return
	}
	ev.AssignmentID = as.sess.AssignmentID()
	ev.At = s.opts.Now()
	if err := s.events.Publish(context.Background(), as.cand.Key, ev); err != nil {
		s.log.Debug().Err(err).Str("type", ev.Type).Msg("Publish event failed")
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, submission.ErrExpired):
		return "expired"
	case errors.Is(err, submission.ErrAlreadySubmitted):
		return "already_submitted"
	case errors.Is(err, submission.ErrValidation):
		return "validation"
	default:
		return "network"
	}
}

// startExpired reports whether a failed start means the assignment expired.
func startExpired(err error) bool {
	var se *apiclient.StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusGone || strings.Contains(strings.ToLower(se.Message), "expired")
}

// userMessage turns a backend error into text fit for a candidate.
func userMessage(err error) string {
	var se *apiclient.StatusError
	var te *apiclient.TransportError
	switch {
	case apiclient.IsCredentialError(err):
		return "Your login has expired. Please sign in again."
	case errors.As(err, &se) && se.Message != "":
		return se.Message
	case errors.As(err, &te):
		return "Could not reach the test server. Check your connection and try again."
	}
	return err.Error()
}
