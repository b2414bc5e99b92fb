package model

// StartTestResponse is the payload of POST /candidate/tests/{id}/start.
type StartTestResponse struct {
	Questions []Question    `json:"questions" validate:"required,min=1,dive"`
	Test      StartTestInfo `json:"test"`
}

// StartTestInfo carries the limits of the attempt being started.
type StartTestInfo struct {
	TimeLimit      int `json:"time_limit" validate:"gte=0"`
	TotalQuestions int `json:"total_questions" validate:"gte=0"`
}

// SubmitTestRequest is the body of POST /candidate/tests/{id}/submit.
type SubmitTestRequest struct {
	Answers       map[string]string `json:"answers"`
	AutoSubmitted bool              `json:"auto_submitted"`
}

// SubmitTestResponse is the backend's reply to a submit.
type SubmitTestResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    *SubmitResultData `json:"data,omitempty"`
}

// SubmitResultData holds the grading outcome, if already available.
type SubmitResultData struct {
	ScorePercentage *float64 `json:"score_percentage"`
}

// Score returns the reported percentage or nil while grading is pending.
func (r *SubmitTestResponse) Score() *float64 {
	if r == nil || r.Data == nil {
		return nil
	}
	return r.Data.ScorePercentage
}
