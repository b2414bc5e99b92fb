package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// QuestionType enumerates supported question kinds.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
)

// Question is one exam item. Answers to multiple-choice questions are
// option indices, not option text.
type Question struct {
	ID           QuestionID   `json:"id" validate:"required"`
	QuestionText string       `json:"question_text"`
	Type         QuestionType `json:"type"`
	Options      Options      `json:"options"`
}

// IsMultipleChoice treats an empty type as multiple choice, the only kind
// the backend currently issues.
func (q Question) IsMultipleChoice() bool {
	return q.Type == QuestionTypeMultipleChoice || q.Type == ""
}

// ValidOption reports whether idx addresses one of the question's options.
func (q Question) ValidOption(idx int) bool {
	return idx >= 0 && idx < len(q.Options)
}

// Options is the ordered option list of a question. It decodes from a JSON
// array or from a JSON string that itself holds an array.
type Options []string

func (o *Options) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*o = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		data = []byte(raw)
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	*o = list
	return nil
}
