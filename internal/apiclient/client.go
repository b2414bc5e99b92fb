// Package apiclient is the thin HTTP client for the HR backend's candidate
// test endpoints.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 4 << 20

// Config configures a Client.
type Config struct {
	// BaseURL is the backend API root, e.g. https://hr.example.com/api.
	BaseURL string
	Timeout time.Duration
	// Transport overrides the underlying round tripper (tests).
	Transport http.RoundTripper
}

// Client issues authenticated requests to the backend. It keeps no state
// across calls besides its configuration.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// New creates a Client that attaches the credential from creds to every request.
func New(cfg Config, creds CredentialProvider, log zerolog.Logger) *Client {
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: &oauth2.Transport{Source: creds, Base: base},
		},
		log: log.With().Str("component", "api_client").Logger(),
	}
}

// Request sends body (JSON-encoded when non-nil) and returns the raw JSON
// reply. Non-2xx replies yield *StatusError, network or decoding failures
// *TransportError, and credential failures wrap ErrNoCredential or
// ErrCredentialExpired.
func (c *Client) Request(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if IsCredentialError(err) {
			return nil, err
		}
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: fmt.Errorf("read body: %w", err)}
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("Backend call")

	if resp.StatusCode/100 != 2 {
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
			Body:       jsonOrNil(raw),
		}
	}

	if !json.Valid(raw) {
		return nil, &TransportError{Method: method, Path: path, Err: fmt.Errorf("response is not JSON")}
	}
	return raw, nil
}

// errorMessage extracts Laravel's {"message": "..."} when present.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

func jsonOrNil(raw []byte) json.RawMessage {
	if len(raw) == 0 || !json.Valid(raw) {
		return nil
	}
	return json.RawMessage(raw)
}

// unwrapData returns the "data" member of a {"data": ...} envelope, or raw
// itself when the payload is not wrapped. key names a member that marks an
// unwrapped object (e.g. "questions").
func unwrapData(raw json.RawMessage, key string) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw
	}
	var obj map[string]json.RawMessage
	if json.Unmarshal(trimmed, &obj) != nil {
		return raw
	}
	if key != "" {
		if _, ok := obj[key]; ok {
			return raw
		}
	}
	if data, ok := obj["data"]; ok {
		return data
	}
	return raw
}
