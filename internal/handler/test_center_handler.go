package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/testcenter/internal/middleware"
	"github.com/stemsi/testcenter/internal/model"
	"github.com/stemsi/testcenter/internal/response"
	"github.com/stemsi/testcenter/internal/service"
	"github.com/stemsi/testcenter/internal/session"
	"github.com/stemsi/testcenter/internal/validator"
)

// TestCenterHandler handles the candidate-facing test endpoints.
type TestCenterHandler struct {
	svc *service.TestCenterService
	log zerolog.Logger
}

// NewTestCenterHandler creates a new TestCenterHandler.
func NewTestCenterHandler(svc *service.TestCenterService, log zerolog.Logger) *TestCenterHandler {
	return &TestCenterHandler{
		svc: svc,
		log: log.With().Str("component", "test_center_handler").Logger(),
	}
}

// ListTests godoc
// GET /api/v1/candidate/tests
// Returns the candidate's assignments with expiry badges.
func (h *TestCenterHandler) ListTests(c *gin.Context) {
	cand, ok := middleware.GetCandidate(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	tests, err := h.svc.ListAvailable(c.Request.Context(), cand)
	if err != nil {
		h.log.Warn().Err(err).Str("candidate", cand.Key).Msg("List tests failed")
		fail(c, err, nil)
		return
	}
	if tests == nil {
		tests = []service.AvailableTest{}
	}

	response.Success(c, http.StatusOK, gin.H{"tests": tests})
}

// ListResults godoc
// GET /api/v1/candidate/tests/results
func (h *TestCenterHandler) ListResults(c *gin.Context) {
	cand, ok := middleware.GetCandidate(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	results, err := h.svc.ListResults(c.Request.Context(), cand)
	if err != nil {
		h.log.Warn().Err(err).Str("candidate", cand.Key).Msg("List results failed")
		fail(c, err, nil)
		return
	}
	if results == nil {
		results = []model.TestResult{}
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// StartTest godoc
// POST /api/v1/candidate/tests/:assignment_id/start
// Starts or resumes an assignment; replaces any session the candidate had.
func (h *TestCenterHandler) StartTest(c *gin.Context) {
	cand, ok := middleware.GetCandidate(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id := strings.TrimSpace(c.Param("assignment_id"))
	if id == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	snap, err := h.svc.Start(c.Request.Context(), cand, model.AssignmentID(id))
	if err != nil {
		var data interface{}
		if snap.AssignmentID != "" {
			data = gin.H{"session": snap}
		}
		fail(c, err, data)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": snap})
}

// GetSession godoc
// GET /api/v1/candidate/session
func (h *TestCenterHandler) GetSession(c *gin.Context) {
	h.run(c, func(key string) (session.Snapshot, error) {
		return h.svc.Snapshot(key)
	})
}

// SaveAnswer godoc
// PUT /api/v1/candidate/session/answers
func (h *TestCenterHandler) SaveAnswer(c *gin.Context) {
	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	h.run(c, func(key string) (session.Snapshot, error) {
		return h.svc.Answer(c.Request.Context(), key, req.QuestionID, *req.OptionIndex)
	})
}

// Next godoc
// POST /api/v1/candidate/session/next
func (h *TestCenterHandler) Next(c *gin.Context) {
	h.run(c, h.svc.Next)
}

// Previous godoc
// POST /api/v1/candidate/session/previous
func (h *TestCenterHandler) Previous(c *gin.Context) {
	h.run(c, h.svc.Previous)
}

// GoTo godoc
// POST /api/v1/candidate/session/goto
func (h *TestCenterHandler) GoTo(c *gin.Context) {
	var req model.GoToRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	h.run(c, func(key string) (session.Snapshot, error) {
		return h.svc.GoTo(key, *req.Index)
	})
}

// Pause godoc
// POST /api/v1/candidate/session/pause
func (h *TestCenterHandler) Pause(c *gin.Context) {
	h.run(c, h.svc.Pause)
}

// Resume godoc
// POST /api/v1/candidate/session/resume
func (h *TestCenterHandler) Resume(c *gin.Context) {
	h.run(c, h.svc.Resume)
}

// Submit godoc
// POST /api/v1/candidate/session/submit
// Submits the candidate's answers. A second submit while one is in flight,
// or after completion, never reaches the backend.
func (h *TestCenterHandler) Submit(c *gin.Context) {
	cand, ok := middleware.GetCandidate(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	res, snap, err := h.svc.Submit(c.Request.Context(), cand.Key)
	if err != nil {
		var data interface{}
		if snap.AssignmentID != "" {
			data = gin.H{"session": snap}
		}
		fail(c, err, data)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"result":      res,
		"score_label": res.ScoreLabel(),
		"session":     snap,
	})
}

// CancelSession godoc
// DELETE /api/v1/candidate/session
// Discards the local session; the attempt stays resumable on the backend.
func (h *TestCenterHandler) CancelSession(c *gin.Context) {
	cand, ok := middleware.GetCandidate(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.svc.Cancel(cand.Key); err != nil {
		fail(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// run executes a session operation for the current candidate and writes the
// resulting snapshot.
func (h *TestCenterHandler) run(c *gin.Context, op func(candidateKey string) (session.Snapshot, error)) {
	cand, ok := middleware.GetCandidate(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	snap, err := op(cand.Key)
	if err != nil {
		var data interface{}
		if snap.AssignmentID != "" {
			data = gin.H{"session": snap}
		}
		fail(c, err, data)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": snap})
}
