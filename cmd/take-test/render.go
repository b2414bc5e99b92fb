package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/stemsi/testcenter/internal/model"
	"github.com/stemsi/testcenter/internal/session"
)

// formatClock renders seconds as MM:SS, or H:MM:SS past an hour.
func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func clockLine(snap session.Snapshot) string {
	line := "Time left " + formatClock(snap.RemainingSeconds)
	if snap.State.Paused {
		line += " (paused)"
	}
	return line
}

// gridLine renders the jump grid: answered questions are marked with *,
// the current one is bracketed.
func gridLine(cells []session.GridCell) string {
	var b strings.Builder
	for i, c := range cells {
		if i > 0 {
			b.WriteByte(' ')
		}
		label := fmt.Sprintf("%d", c.Index+1)
		if c.Answered {
			label += "*"
		}
		if c.Current {
			label = "[" + label + "]"
		}
		b.WriteString(label)
	}
	return b.String()
}

func renderQuestion(w io.Writer, snap session.Snapshot) {
	header := color.New(color.FgCyan, color.Bold)
	header.Fprintf(w, "\n%s  |  Question %d of %d  |  %d%%  |  %s\n",
		snap.Title, snap.CurrentIndex+1, snap.TotalQuestions, snap.ProgressPercent, clockLine(snap))

	if snap.Question != nil {
		fmt.Fprintf(w, "\n%s\n\n", snap.Question.QuestionText)
		chosen, answered := snap.Answers[snap.Question.ID]
		for i, opt := range snap.Question.Options {
			marker := "( )"
			if answered && chosen == i {
				marker = color.GreenString("(x)")
			}
			fmt.Fprintf(w, "  %s %d. %s\n", marker, i+1, opt)
		}
	}

	fmt.Fprintf(w, "\n%s\n", gridLine(snap.Grid))
	if snap.Error != "" {
		color.New(color.FgRed).Fprintln(w, snap.Error)
	}
	fmt.Fprint(w, "> ")
}

func renderOutcome(w io.Writer, snap session.Snapshot) {
	fmt.Fprintln(w)
	switch {
	case snap.State.Kind == session.KindCompleted && snap.Result != nil && snap.Result.Success:
		color.New(color.FgGreen, color.Bold).Fprintln(w, "Test submitted.")
		if snap.Result.AutoSubmitted {
			fmt.Fprintln(w, "Time ran out and your answers were submitted automatically.")
		}
		fmt.Fprintf(w, "Score: %s\n", color.CyanString(model.FormatScore(snap.Result.ScorePercentage)))
	case snap.State.Kind == session.KindCompleted:
		color.New(color.FgYellow).Fprintln(w, "This test was already submitted.")
	case snap.State.Reason == session.ReasonExpired:
		color.New(color.FgRed, color.Bold).Fprintln(w, "This test has expired.")
	default:
		color.New(color.FgRed).Fprintln(w, "The test ended without a submission.")
	}
	if snap.Error != "" {
		fmt.Fprintln(w, snap.Error)
	}
}
