package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/stemsi/testcenter/internal/model"
	"github.com/stemsi/testcenter/internal/validator"
)

// AvailableTests lists the candidate's pending and in-progress assignments.
func (c *Client) AvailableTests(ctx context.Context) ([]model.TestAssignment, error) {
	raw, err := c.Request(ctx, http.MethodGet, "/candidate/tests/available", nil)
	if err != nil {
		return nil, err
	}
	var out []model.TestAssignment
	if err := json.Unmarshal(unwrapData(raw, ""), &out); err != nil {
		return nil, &TransportError{Method: http.MethodGet, Path: "/candidate/tests/available", Err: err}
	}
	return out, nil
}

// TestResults lists the candidate's completed attempts.
func (c *Client) TestResults(ctx context.Context) ([]model.TestResult, error) {
	raw, err := c.Request(ctx, http.MethodGet, "/candidate/tests/results", nil)
	if err != nil {
		return nil, err
	}
	var out []model.TestResult
	if err := json.Unmarshal(unwrapData(raw, ""), &out); err != nil {
		return nil, &TransportError{Method: http.MethodGet, Path: "/candidate/tests/results", Err: err}
	}
	return out, nil
}

// StartTest begins or resumes the attempt for an assignment.
func (c *Client) StartTest(ctx context.Context, id model.AssignmentID) (*model.StartTestResponse, error) {
	path := fmt.Sprintf("/candidate/tests/%s/start", url.PathEscape(id.String()))
	raw, err := c.Request(ctx, http.MethodPost, path, nil)
	if err != nil {
		return nil, err
	}

	var out model.StartTestResponse
	if err := json.Unmarshal(unwrapData(raw, "questions"), &out); err != nil {
		return nil, &TransportError{Method: http.MethodPost, Path: path, Err: err}
	}
	if err := validator.Payload(&out); err != nil {
		return nil, fmt.Errorf("start %s: %w", id, err)
	}
	return &out, nil
}

// SubmitTest finalizes the attempt for an assignment. A non-2xx reply is
// returned as *StatusError whose Body still carries the backend's JSON.
func (c *Client) SubmitTest(ctx context.Context, id model.AssignmentID, req model.SubmitTestRequest) (*model.SubmitTestResponse, error) {
	path := fmt.Sprintf("/candidate/tests/%s/submit", url.PathEscape(id.String()))
	raw, err := c.Request(ctx, http.MethodPost, path, req)
	if err != nil {
		return nil, err
	}

	var out model.SubmitTestResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &TransportError{Method: http.MethodPost, Path: path, Err: err}
	}
	return &out, nil
}
