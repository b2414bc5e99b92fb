package model

// AnswerRequest is the body of PUT /session/answers.
type AnswerRequest struct {
	QuestionID  QuestionID `json:"question_id" binding:"required"`
	OptionIndex *int       `json:"option_index" binding:"required,gte=0"`
}

// GoToRequest is the body of POST /session/goto.
type GoToRequest struct {
	Index *int `json:"index" binding:"required,gte=0"`
}
