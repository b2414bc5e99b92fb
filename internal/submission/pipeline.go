// Package submission sends a session's answers to the backend exactly once
// and folds the outcome back into the session.
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/testcenter/internal/apiclient"
	"github.com/stemsi/testcenter/internal/model"
	"github.com/stemsi/testcenter/internal/session"
)

// Submitter is the backend call the pipeline depends on.
type Submitter interface {
	SubmitTest(ctx context.Context, id model.AssignmentID, req model.SubmitTestRequest) (*model.SubmitTestResponse, error)
}

// Pipeline submits sessions.
type Pipeline struct {
	api     Submitter
	log     zerolog.Logger
	timeout time.Duration
}

// NewPipeline creates a pipeline. timeout bounds each POST; zero means the
// caller's context alone.
func NewPipeline(api Submitter, timeout time.Duration, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		api:     api,
		log:     log.With().Str("component", "submission").Logger(),
		timeout: timeout,
	}
}

// Submit sends the answers of s. Only the first caller for a session reaches
// the network; everyone else gets ErrDuplicateSubmit. auto marks a submit
// triggered by the countdown reaching zero; a retry after the clock ran out
// is always sent as automatic.
//
// On success the session is Completed. A null score is not an error. On
// failure the session is updated according to the error kind: expired ends
// the attempt, network and validation errors leave it resumable with its
// answers intact.
func (p *Pipeline) Submit(ctx context.Context, s *session.Session, auto bool) (*model.SubmissionResult, error) {
	auto = auto || s.TimeUp()
	answers, err := s.BeginSubmit()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDuplicateSubmit, err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	id := s.AssignmentID()
	req := model.SubmitTestRequest{Answers: answers.Wire(), AutoSubmitted: auto}

	p.log.Info().
		Str("assignment_id", id.String()).
		Int("answered", len(answers)).
		Bool("auto_submitted", auto).
		Msg("Submitting test")

	resp, err := p.api.SubmitTest(ctx, id, req)
	if err == nil && resp != nil && resp.Success {
		result := model.SubmissionResult{
			Success:         true,
			ScorePercentage: resp.Score(),
			Message:         resp.Message,
			AutoSubmitted:   auto,
		}
		s.CompleteSubmit(result)
		p.log.Info().Str("assignment_id", id.String()).Str("score", result.ScoreLabel()).Msg("Test submitted")
		return &result, nil
	}

	serr := classify(resp, err)
	if errors.Is(serr.Kind, ErrAlreadySubmitted) {
		if prior := priorScore(resp, err); prior != nil {
			result := model.SubmissionResult{Success: true, ScorePercentage: prior, Message: serr.Message, AutoSubmitted: auto}
			s.CompleteSubmit(result)
			p.log.Info().Str("assignment_id", id.String()).Msg("Test was already submitted; using prior score")
			return &result, nil
		}
		s.CompleteSubmit(model.SubmissionResult{Message: serr.Message, AutoSubmitted: auto})
	} else {
		s.AbortSubmit(errors.Is(serr.Kind, ErrExpired), serr.Error())
	}

	p.log.Warn().
		Err(serr).
		Str("assignment_id", id.String()).
		Bool("auto_submitted", auto).
		Bool("resumable", Resumable(serr)).
		Msg("Submission failed")
	return nil, serr
}

// classify maps a backend reply or call error onto a submit error kind.
func classify(resp *model.SubmitTestResponse, err error) *Error {
	if err == nil {
		msg := ""
		if resp != nil {
			msg = resp.Message
		}
		switch {
		case mentionsExpiry(msg):
			return &Error{Kind: ErrExpired, Message: msg}
		case mentionsAlreadySubmitted(msg):
			return &Error{Kind: ErrAlreadySubmitted, Message: msg}
		case msg != "":
			return &Error{Kind: ErrValidation, Message: msg}
		}
		return &Error{Kind: ErrNetwork, Message: "unexpected response from the test server"}
	}

	var se *apiclient.StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == http.StatusGone || mentionsExpiry(se.Message):
			return &Error{Kind: ErrExpired, Message: se.Message, Err: err}
		case se.StatusCode == http.StatusConflict || mentionsAlreadySubmitted(se.Message):
			return &Error{Kind: ErrAlreadySubmitted, Message: se.Message, Err: err}
		case se.StatusCode == http.StatusUnprocessableEntity:
			return &Error{Kind: ErrValidation, Message: se.Message, Err: err}
		}
		return &Error{Kind: ErrNetwork, Message: se.Message, Err: err}
	}
	return &Error{Kind: ErrNetwork, Err: err}
}

// priorScore reads a score the backend reported alongside a conflict, either
// in an error body or in a 2xx reply with success=false.
func priorScore(resp *model.SubmitTestResponse, err error) *float64 {
	var se *apiclient.StatusError
	if !errors.As(err, &se) || len(se.Body) == 0 {
		if err == nil && resp != nil {
			return resp.Score()
		}
		return nil
	}
	var body model.SubmitTestResponse
	if json.Unmarshal(se.Body, &body) != nil {
		return nil
	}
	return body.Score()
}
