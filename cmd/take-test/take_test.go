package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/stemsi/testcenter/internal/model"
	"github.com/stemsi/testcenter/internal/session"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		want    command
		wantErr bool
	}{
		{line: "", want: command{name: "show"}},
		{line: "n", want: command{name: "next"}},
		{line: "Prev", want: command{name: "previous"}},
		{line: "g 3", want: command{name: "goto", arg: 2}},
		{line: "a 1", want: command{name: "answer", arg: 0}},
		{line: "4", want: command{name: "answer", arg: 3}},
		{line: "submit", want: command{name: "submit"}},
		{line: "q", want: command{name: "quit"}},
		{line: "g", wantErr: true},
		{line: "a 0", wantErr: true},
		{line: "a x", wantErr: true},
		{line: "dance", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseCommand(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseCommand(%q) = %+v, want error", tt.line, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCommand(%q) error = %v", tt.line, err)
			}
			if got != tt.want {
				t.Errorf("parseCommand(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestFormatClock(t *testing.T) {
	tests := map[int]string{
		0:    "00:00",
		-5:   "00:00",
		59:   "00:59",
		600:  "10:00",
		3725: "1:02:05",
	}
	for in, want := range tests {
		if got := formatClock(in); got != want {
			t.Errorf("formatClock(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestGridLine(t *testing.T) {
	cells := []session.GridCell{
		{Index: 0, Answered: true},
		{Index: 1, Current: true},
		{Index: 2, Answered: true, Current: false},
	}
	if got, want := gridLine(cells), "1* [2] 3*"; got != want {
		t.Errorf("gridLine() = %q, want %q", got, want)
	}
}

func TestRenderOutcome(t *testing.T) {
	color.NoColor = true
	score := 66.7

	tests := []struct {
		name string
		snap session.Snapshot
		want string
	}{
		{
			name: "scored",
			snap: session.Snapshot{
				State:  session.State{Kind: session.KindCompleted},
				Result: &model.SubmissionResult{Success: true, ScorePercentage: &score},
			},
			want: "Score: 67%",
		},
		{
			name: "auto submitted without score",
			snap: session.Snapshot{
				State:  session.State{Kind: session.KindCompleted},
				Result: &model.SubmissionResult{Success: true, AutoSubmitted: true},
			},
			want: "Score: calculating",
		},
		{
			name: "expired",
			snap: session.Snapshot{State: session.State{Kind: session.KindFailed, Reason: session.ReasonExpired}},
			want: "expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			renderOutcome(&buf, tt.snap)
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output %q does not contain %q", buf.String(), tt.want)
			}
		})
	}
}
