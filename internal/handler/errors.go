package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/testcenter/internal/apiclient"
	"github.com/stemsi/testcenter/internal/response"
	"github.com/stemsi/testcenter/internal/service"
	"github.com/stemsi/testcenter/internal/session"
	"github.com/stemsi/testcenter/internal/submission"
)

// errorCode maps a service error onto an HTTP status and API error code.
func errorCode(err error) (int, response.ErrCode) {
	var se *apiclient.StatusError
	switch {
	case apiclient.IsCredentialError(err):
		return http.StatusUnauthorized, response.ErrTokenExpired

	case errors.Is(err, service.ErrNoActiveSession):
		return http.StatusNotFound, response.ErrNoActiveSession
	case errors.Is(err, service.ErrAssignmentNotFound):
		return http.StatusNotFound, response.ErrAssignmentNotFound
	case errors.Is(err, service.ErrAssignmentExpired):
		return http.StatusGone, response.ErrAssignmentExpired
	case errors.Is(err, service.ErrAssignmentCompleted):
		return http.StatusConflict, response.ErrAssignmentCompleted

	case errors.Is(err, session.ErrTimeUp):
		return http.StatusConflict, response.ErrTimeUp
	case errors.Is(err, session.ErrPaused):
		return http.StatusConflict, response.ErrSessionPaused
	case errors.Is(err, session.ErrInvalidAnswer):
		return http.StatusUnprocessableEntity, response.ErrInvalidAnswer
	case errors.Is(err, session.ErrSubmitInFlight):
		return http.StatusConflict, response.ErrSubmitInFlight
	case errors.Is(err, session.ErrNotActive):
		return http.StatusConflict, response.ErrSessionNotActive

	case errors.Is(err, submission.ErrExpired):
		return http.StatusGone, response.ErrTestExpired
	case errors.Is(err, submission.ErrAlreadySubmitted):
		return http.StatusConflict, response.ErrAlreadySubmitted
	case errors.Is(err, submission.ErrValidation):
		return http.StatusUnprocessableEntity, response.ErrSubmissionRejected
	case errors.Is(err, submission.ErrNetwork):
		return http.StatusBadGateway, response.ErrBackendUnavailable

	case errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized:
		return http.StatusUnauthorized, response.ErrTokenInvalid
	case errors.Is(err, service.ErrStartFailed):
		return http.StatusBadGateway, response.ErrStartFailed
	case errors.As(err, &se):
		return http.StatusBadGateway, response.ErrBackendUnavailable
	}

	var te *apiclient.TransportError
	if errors.As(err, &te) {
		return http.StatusBadGateway, response.ErrBackendUnavailable
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// errorMessage prefers the backend's own explanation for submit failures.
func errorMessage(err error) string {
	var se *submission.Error
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return ""
}

// fail writes err as an API error. data, when non-nil, is the session
// snapshot after the failed operation.
func fail(c *gin.Context, err error, data interface{}) {
	status, code := errorCode(err)
	response.FailWithMessage(c, status, code, errorMessage(err), data)
}
