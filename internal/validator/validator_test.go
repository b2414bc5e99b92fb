package validator

import (
	"strings"
	"testing"

	"github.com/stemsi/testcenter/internal/model"
)

func TestPayloadStartResponse(t *testing.T) {
	tests := []struct {
		name    string
		resp    model.StartTestResponse
		wantErr string
	}{
		{
			name: "valid",
			resp: model.StartTestResponse{
				Questions: []model.Question{{ID: "1", Type: model.QuestionTypeMultipleChoice, Options: model.Options{"a", "b"}}},
				Test:      model.StartTestInfo{TimeLimit: 10, TotalQuestions: 1},
			},
		},
		{
			name:    "no questions",
			resp:    model.StartTestResponse{Test: model.StartTestInfo{TimeLimit: 10}},
			wantErr: "questions",
		},
		{
			name: "missing id",
			resp: model.StartTestResponse{
				Questions: []model.Question{{Type: model.QuestionTypeMultipleChoice, Options: model.Options{"a"}}},
			},
			wantErr: "id",
		},
		{
			name: "multiple choice without options",
			resp: model.StartTestResponse{
				Questions: []model.Question{{ID: "1", Type: model.QuestionTypeMultipleChoice}},
			},
			wantErr: "mcq_options",
		},
		{
			name: "negative time limit",
			resp: model.StartTestResponse{
				Questions: []model.Question{{ID: "1", Options: model.Options{"a"}}},
				Test:      model.StartTestInfo{TimeLimit: -1},
			},
			wantErr: "time_limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Payload(&tt.resp)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Payload() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Payload() = nil, want error mentioning %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
