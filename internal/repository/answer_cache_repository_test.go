package repository

import "testing"

func TestDecodeAnswers(t *testing.T) {
	got := decodeAnswers(map[string]string{
		"Q1": "1",
		"Q2": "0",
		"Q3": "x",
		"Q4": "-2",
	})
	if len(got) != 2 || got["Q1"] != 1 || got["Q2"] != 0 {
		t.Errorf("decodeAnswers = %v", got)
	}
}
