package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Test session ──────────────────────────────────────────────────
	ErrAssignmentNotFound  ErrCode = "ASSIGNMENT_NOT_FOUND"
	ErrAssignmentExpired   ErrCode = "ASSIGNMENT_EXPIRED"
	ErrAssignmentCompleted ErrCode = "ASSIGNMENT_COMPLETED"
	ErrStartFailed         ErrCode = "START_FAILED"
	ErrNoActiveSession     ErrCode = "NO_ACTIVE_SESSION"
	ErrSessionNotActive    ErrCode = "SESSION_NOT_ACTIVE"
	ErrSessionPaused       ErrCode = "SESSION_PAUSED"
	ErrTimeUp              ErrCode = "TIME_UP"
	ErrInvalidAnswer       ErrCode = "INVALID_ANSWER"

	// ─── Submission ────────────────────────────────────────────────────
	ErrSubmitInFlight     ErrCode = "SUBMIT_IN_FLIGHT"
	ErrSubmissionRejected ErrCode = "SUBMISSION_REJECTED"
	ErrAlreadySubmitted   ErrCode = "ALREADY_SUBMITTED"
	ErrTestExpired        ErrCode = "TEST_EXPIRED"
	ErrBackendUnavailable ErrCode = "BACKEND_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "Your login has expired. Please sign in again."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Test session ──────────────────────────────────────────────────
	case ErrAssignmentNotFound:
		return "This test is not assigned to you."
	case ErrAssignmentExpired:
		return "This test has expired and can no longer be taken."
	case ErrAssignmentCompleted:
		return "You have already completed this test."
	case ErrStartFailed:
		return "The test could not be started. Please try again."
	case ErrNoActiveSession:
		return "You have no test in progress."
	case ErrSessionNotActive:
		return "The test is no longer in progress."
	case ErrSessionPaused:
		return "The test is paused. Resume it to continue."
	case ErrTimeUp:
		return "Time is up. Your answers are being submitted."
	case ErrInvalidAnswer:
		return "That answer is not valid for this question."

	// ─── Submission ────────────────────────────────────────────────────
	case ErrSubmitInFlight:
		return "Your test is already being submitted."
	case ErrSubmissionRejected:
		return "The submission was rejected. Please review and try again."
	case ErrAlreadySubmitted:
		return "This test was already submitted."
	case ErrTestExpired:
		return "Time for this test has run out."
	case ErrBackendUnavailable:
		return "Could not reach the test server. Your answers are kept; please try again."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
