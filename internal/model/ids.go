package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AssignmentID identifies one candidate-specific assignment of a test.
// Start and submit endpoints are addressed by AssignmentID, never by TestID.
type AssignmentID string

// TestID identifies a test definition, possibly shared across candidates.
type TestID string

// QuestionID identifies one question within a test.
type QuestionID string

func (id AssignmentID) String() string { return string(id) }
func (id TestID) String() string       { return string(id) }
func (id QuestionID) String() string   { return string(id) }

func (id *AssignmentID) UnmarshalJSON(data []byte) error {
	s, err := decodeID(data)
	*id = AssignmentID(s)
	return err
}

func (id *TestID) UnmarshalJSON(data []byte) error {
	s, err := decodeID(data)
	*id = TestID(s)
	return err
}

func (id *QuestionID) UnmarshalJSON(data []byte) error {
	s, err := decodeID(data)
	*id = QuestionID(s)
	return err
}

// decodeID accepts ids emitted either as JSON numbers or as JSON strings.
func decodeID(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", fmt.Errorf("id must be a string or number: %w", err)
	}
	return n.String(), nil
}
