package model

import "strconv"

// AnswerMap maps a question to the selected option index. A missing key
// means the question is unanswered.
type AnswerMap map[QuestionID]int

// Clone returns an independent copy.
func (m AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Wire converts the answers into the submit payload shape. The backend
// compares answers as strings, so each index is rendered with Itoa.
// Unanswered questions are omitted, never sent as null or "".
func (m AnswerMap) Wire() map[string]string {
	out := make(map[string]string, len(m))
	for qid, idx := range m {
		out[string(qid)] = strconv.Itoa(idx)
	}
	return out
}
