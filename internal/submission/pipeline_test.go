package submission

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/stemsi/testcenter/internal/apiclient"
	"github.com/stemsi/testcenter/internal/model"
	"github.com/stemsi/testcenter/internal/session"
)

type fakeSubmitter struct {
	calls int32
	gate  chan struct{}
	last  model.SubmitTestRequest
	id    model.AssignmentID
	resp  *model.SubmitTestResponse
	err   error
	mu    sync.Mutex
}

func (f *fakeSubmitter) SubmitTest(ctx context.Context, id model.AssignmentID, req model.SubmitTestRequest) (*model.SubmitTestResponse, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.last, f.id = req, id
	f.mu.Unlock()
	return f.resp, f.err
}

func score(v float64) *float64 { return &v }

func startedSession(t *testing.T) *session.Session {
	t.Helper()
	return beginSession(t, 600, func() {})
}

func beginSession(t *testing.T, seconds int, onExpire func()) *session.Session {
	t.Helper()
	s := session.New(model.TestAssignment{ID: "A1", TestID: "T9", Status: model.AssignmentStatusPending})
	if err := s.BeginLoad(); err != nil {
		t.Fatalf("BeginLoad: %v", err)
	}
	questions := []model.Question{
		{ID: "Q1", Options: model.Options{"a", "b"}},
		{ID: "Q2", Options: model.Options{"a", "b"}},
		{ID: "Q3", Options: model.Options{"a", "b"}},
	}
	if err := s.Begin(questions, seconds, nil, onExpire); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	t.Cleanup(s.Cancel)
	return s
}

func TestSubmitHappyPath(t *testing.T) {
	api := &fakeSubmitter{resp: &model.SubmitTestResponse{Success: true, Data: &model.SubmitResultData{ScorePercentage: score(66.7)}}}
	p := NewPipeline(api, 0, zerolog.Nop())
	s := startedSession(t)
	s.SetAnswer("Q1", 1)
	s.SetAnswer("Q2", 0)

	res, err := p.Submit(context.Background(), s, false)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if api.id != "A1" {
		t.Errorf("submitted to %q, want assignment id A1", api.id)
	}
	want := map[string]string{"Q1": "1", "Q2": "0"}
	if len(api.last.Answers) != len(want) {
		t.Fatalf("answers = %v, want %v", api.last.Answers, want)
	}
	for k, v := range want {
		if api.last.Answers[k] != v {
			t.Errorf("answers[%s] = %q, want %q", k, api.last.Answers[k], v)
		}
	}
	if api.last.AutoSubmitted {
		t.Error("manual submit flagged as auto")
	}
	if res.ScoreLabel() != "67%" {
		t.Errorf("ScoreLabel = %q, want 67%%", res.ScoreLabel())
	}
	if s.State().Kind != session.KindCompleted {
		t.Errorf("state = %v, want completed", s.State())
	}
}

func TestSubmitNullScore(t *testing.T) {
	api := &fakeSubmitter{resp: &model.SubmitTestResponse{Success: true, Data: &model.SubmitResultData{}}}
	p := NewPipeline(api, 0, zerolog.Nop())
	s := startedSession(t)

	res, err := p.Submit(context.Background(), s, true)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.ScoreLabel() != "calculating" || !res.AutoSubmitted {
		t.Errorf("result = %+v", res)
	}
	if len(api.last.Answers) != 0 || !api.last.AutoSubmitted {
		t.Errorf("request = %+v", api.last)
	}
}

func TestConcurrentSubmitPostsOnce(t *testing.T) {
	api := &fakeSubmitter{
		gate: make(chan struct{}),
		resp: &model.SubmitTestResponse{Success: true},
	}
	p := NewPipeline(api, 0, zerolog.Nop())
	s := startedSession(t)

	const n = 16
	var wg sync.WaitGroup
	var ok, dup int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(auto bool) {
			defer wg.Done()
			_, err := p.Submit(context.Background(), s, auto)
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, ErrDuplicateSubmit):
				atomic.AddInt32(&dup, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i%2 == 0)
	}

	// Release the single in-flight POST only after the others have bounced.
	for atomic.LoadInt32(&dup) < n-1 {
		runtime.Gosched()
	}
	close(api.gate)
	wg.Wait()

	if api.calls != 1 {
		t.Errorf("POST count = %d, want 1", api.calls)
	}
	if ok != 1 || dup != n-1 {
		t.Errorf("ok=%d dup=%d", ok, dup)
	}
}

func TestSubmitAfterCompletionIsNoop(t *testing.T) {
	api := &fakeSubmitter{resp: &model.SubmitTestResponse{Success: true}}
	p := NewPipeline(api, 0, zerolog.Nop())
	s := startedSession(t)

	if _, err := p.Submit(context.Background(), s, true); err != nil {
		t.Fatalf("auto submit: %v", err)
	}
	_, err := p.Submit(context.Background(), s, false)
	if !errors.Is(err, ErrDuplicateSubmit) {
		t.Fatalf("second submit err = %v, want ErrDuplicateSubmit", err)
	}
	if api.calls != 1 {
		t.Errorf("POST count = %d, want 1", api.calls)
	}
}

func TestSubmitErrors(t *testing.T) {
	tests := []struct {
		name      string
		resp      *model.SubmitTestResponse
		err       error
		wantKind  error
		wantState session.Kind
		wantScore bool
	}{
		{
			name:      "network",
			err:       &apiclient.TransportError{Method: "POST", Path: "/x", Err: errors.New("connection refused")},
			wantKind:  ErrNetwork,
			wantState: session.KindInProgress,
		},
		{
			name:      "server error",
			err:       &apiclient.StatusError{StatusCode: http.StatusBadGateway},
			wantKind:  ErrNetwork,
			wantState: session.KindInProgress,
		},
		{
			name:      "validation",
			err:       &apiclient.StatusError{StatusCode: http.StatusUnprocessableEntity, Message: "answers.Q1 must be a string"},
			wantKind:  ErrValidation,
			wantState: session.KindInProgress,
		},
		{
			name:      "expired by status",
			err:       &apiclient.StatusError{StatusCode: http.StatusGone},
			wantKind:  ErrExpired,
			wantState: session.KindFailed,
		},
		{
			name:      "expired by message",
			resp:      &model.SubmitTestResponse{Success: false, Message: "This test has expired"},
			wantKind:  ErrExpired,
			wantState: session.KindFailed,
		},
		{
			name:      "already submitted",
			err:       &apiclient.StatusError{StatusCode: http.StatusConflict, Message: "Test already submitted"},
			wantKind:  ErrAlreadySubmitted,
			wantState: session.KindCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeSubmitter{resp: tt.resp, err: tt.err}
			p := NewPipeline(api, 0, zerolog.Nop())
			s := startedSession(t)
			s.SetAnswer("Q1", 1)

			_, err := p.Submit(context.Background(), s, false)
			if !errors.Is(err, tt.wantKind) {
				t.Fatalf("err = %v, want %v", err, tt.wantKind)
			}
			st := s.State()
			if st.Kind != tt.wantState {
				t.Errorf("state = %v, want %s", st, tt.wantState)
			}
			if st.Kind == session.KindFailed && st.Reason != session.ReasonExpired {
				t.Errorf("reason = %s, want expired", st.Reason)
			}
			if Resumable(err) {
				snap := s.Snapshot()
				if snap.Answers["Q1"] != 1 {
					t.Errorf("answers lost after %s: %v", tt.name, snap.Answers)
				}
			}
		})
	}
}

func TestAlreadySubmittedWithPriorScore(t *testing.T) {
	tests := []struct {
		name string
		resp *model.SubmitTestResponse
		err  error
	}{
		{
			name: "conflict body",
			err: &apiclient.StatusError{
				StatusCode: http.StatusConflict,
				Message:    "already submitted",
				Body:       []byte(`{"success":false,"message":"already submitted","data":{"score_percentage":80}}`),
			},
		},
		{
			name: "success false reply",
			resp: &model.SubmitTestResponse{
				Success: false,
				Message: "Test already submitted",
				Data:    &model.SubmitResultData{ScorePercentage: score(80)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeSubmitter{resp: tt.resp, err: tt.err}
			p := NewPipeline(api, 0, zerolog.Nop())
			s := startedSession(t)

			res, err := p.Submit(context.Background(), s, false)
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if res.ScoreLabel() != "80%" {
				t.Errorf("ScoreLabel = %q", res.ScoreLabel())
			}
			if s.State().Kind != session.KindCompleted {
				t.Errorf("state = %v", s.State())
			}
		})
	}
}

func TestNetworkFailureAllowsRetry(t *testing.T) {
	api := &fakeSubmitter{err: &apiclient.TransportError{Err: errors.New("timeout")}}
	p := NewPipeline(api, 0, zerolog.Nop())
	s := startedSession(t)
	s.SetAnswer("Q2", 1)

	if _, err := p.Submit(context.Background(), s, false); !errors.Is(err, ErrNetwork) {
		t.Fatalf("first submit err = %v", err)
	}

	api.err = nil
	api.resp = &model.SubmitTestResponse{Success: true}
	if _, err := p.Submit(context.Background(), s, false); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if api.last.Answers["Q2"] != "1" {
		t.Errorf("retry answers = %v", api.last.Answers)
	}
}

func TestExpiryDuringFailedManualSubmitForcesRetry(t *testing.T) {
	api := &fakeSubmitter{
		gate: make(chan struct{}),
		err:  &apiclient.TransportError{Method: "POST", Path: "/x", Err: errors.New("connection reset")},
	}
	p := NewPipeline(api, 0, zerolog.Nop())

	var autoErr error
	var s *session.Session
	s = beginSession(t, 1, func() {
		_, autoErr = p.Submit(context.Background(), s, true)
	})
	s.SetAnswer("Q1", 1)

	manual := make(chan error, 1)
	go func() {
		_, err := p.Submit(context.Background(), s, false)
		manual <- err
	}()
	for atomic.LoadInt32(&api.calls) == 0 {
		runtime.Gosched()
	}

	if !s.Clock().Tick() {
		t.Fatal("tick did not expire the clock")
	}
	if !errors.Is(autoErr, ErrDuplicateSubmit) {
		t.Fatalf("auto submit during manual submit err = %v, want ErrDuplicateSubmit", autoErr)
	}

	close(api.gate)
	if err := <-manual; !errors.Is(err, ErrNetwork) {
		t.Fatalf("manual submit err = %v, want ErrNetwork", err)
	}

	st := s.State()
	if st.Kind != session.KindInProgress || !st.TimeUp {
		t.Fatalf("state after failed submit = %+v, want in_progress with time_up", st)
	}
	if err := s.SetAnswer("Q2", 0); !errors.Is(err, session.ErrTimeUp) {
		t.Errorf("SetAnswer after time up err = %v, want ErrTimeUp", err)
	}
	if _, err := s.Next(); !errors.Is(err, session.ErrTimeUp) {
		t.Errorf("Next after time up err = %v, want ErrTimeUp", err)
	}
	if err := s.Pause(); !errors.Is(err, session.ErrTimeUp) {
		t.Errorf("Pause after time up err = %v, want ErrTimeUp", err)
	}

	api.gate = nil
	api.err = nil
	api.resp = &model.SubmitTestResponse{Success: true}
	res, err := p.Submit(context.Background(), s, false)
	if err != nil {
		t.Fatalf("retry after time up: %v", err)
	}
	if !api.last.AutoSubmitted || !res.AutoSubmitted {
		t.Errorf("retry after time up not flagged auto: request %+v", api.last)
	}
	if api.last.Answers["Q1"] != "1" || len(api.last.Answers) != 1 {
		t.Errorf("retry answers = %v", api.last.Answers)
	}
	if s.State().Kind != session.KindCompleted {
		t.Errorf("state = %v, want completed", s.State())
	}
}
