package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Credential errors. A request is never sent without a valid credential.
var (
	ErrNoCredential      = errors.New("no credential available")
	ErrCredentialExpired = errors.New("credential expired")
)

// TransportError reports a failure to reach the backend or to read its
// reply as JSON. It is always retryable by user action.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx response. The client never retries; the
// caller decides what the status means.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Body       json.RawMessage
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// IsCredentialError reports whether err stems from a missing or expired
// credential.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrNoCredential) || errors.Is(err, ErrCredentialExpired)
}
