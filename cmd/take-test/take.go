package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stemsi/testcenter/internal/model"
	"github.com/stemsi/testcenter/internal/session"
)

// Remaining-time marks that trigger a warning line.
var warnAt = []int{300, 60, 10}

func takeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "take <assignment-id>",
		Short: "Start or resume a test",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.svc.Shutdown()

			snap, err := a.svc.Start(cmd.Context(), a.candidate, model.AssignmentID(args[0]))
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), snap)
		},
	}
}

// command is one parsed line of keyboard input.
type command struct {
	name string
	arg  int
}

// parseCommand accepts:
//
//	n | next            p | prev
//	g N | goto N        a N | N        (answer with option N, 1-based)
//	pause  resume  submit  time  help  quit
func parseCommand(line string) (command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return command{name: "show"}, nil
	}

	name := fields[0]
	switch name {
	case "n", "next":
		return command{name: "next"}, nil
	case "p", "prev", "previous":
		return command{name: "previous"}, nil
	case "pause", "resume", "submit", "time", "help", "quit":
		return command{name: name}, nil
	case "q", "exit":
		return command{name: "quit"}, nil
	case "g", "goto", "a", "answer":
		if len(fields) < 2 {
			return command{}, fmt.Errorf("%s needs a number", name)
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			return command{}, fmt.Errorf("%q is not a valid number", fields[1])
		}
		if name == "g" || name == "goto" {
			return command{name: "goto", arg: n - 1}, nil
		}
		return command{name: "answer", arg: n - 1}, nil
	}

	if n, err := strconv.Atoi(name); err == nil && n >= 1 {
		return command{name: "answer", arg: n - 1}, nil
	}
	return command{}, fmt.Errorf("unknown command %q, type help", fields[0])
}

func (a *app) run(ctx context.Context, snap session.Snapshot) error {
	key := a.candidate.Key
	renderQuestion(os.Stdout, snap)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	warned := len(warnAt)
	for i, mark := range warnAt {
		if snap.RemainingSeconds > mark {
			warned = i
			break
		}
	}

	timeUpShown := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			cur, err := a.svc.Snapshot(key)
			if err != nil {
				return err
			}
			if cur.State.Terminal() {
				renderOutcome(os.Stdout, cur)
				return nil
			}
			for warned < len(warnAt) && cur.RemainingSeconds <= warnAt[warned] && cur.RemainingSeconds > 0 {
				color.Yellow("\n%s remaining\n", formatClock(cur.RemainingSeconds))
				warned++
			}
			if cur.State.TimeUp && !timeUpShown {
				color.Red("\nTime is up. Your answers could not be sent yet; retrying.")
				timeUpShown = true
			}

		case line, ok := <-lines:
			if !ok {
				return a.quit()
			}
			cmd, err := parseCommand(line)
			if err != nil {
				color.Red("%s", err)
				continue
			}
			done, err := a.exec(ctx, cmd)
			if err != nil {
				color.Red("%s", describe(err))
			}
			if done {
				return nil
			}
		}
	}
}

// exec runs one command. done reports whether the loop should end.
func (a *app) exec(ctx context.Context, cmd command) (done bool, err error) {
	key := a.candidate.Key
	var snap session.Snapshot

	switch cmd.name {
	case "help":
		fmt.Println(helpText)
		return false, nil
	case "quit":
		return true, a.quit()
	case "time":
		snap, err = a.svc.Snapshot(key)
		if err == nil {
			fmt.Println(clockLine(snap))
		}
		return false, err
	case "show":
		snap, err = a.svc.Snapshot(key)
	case "next":
		snap, err = a.svc.Next(key)
	case "previous":
		snap, err = a.svc.Previous(key)
	case "goto":
		snap, err = a.svc.GoTo(key, cmd.arg)
	case "pause":
		snap, err = a.svc.Pause(key)
	case "resume":
		snap, err = a.svc.Resume(key)
	case "answer":
		cur, cerr := a.svc.Snapshot(key)
		if cerr != nil || cur.Question == nil {
			return false, cerr
		}
		snap, err = a.svc.Answer(ctx, key, cur.Question.ID, cmd.arg)
	case "submit":
		var res *model.SubmissionResult
		res, snap, err = a.svc.Submit(ctx, key)
		if err == nil || snap.State.Terminal() {
			if res != nil && snap.Result == nil {
				snap.Result = res
			}
			renderOutcome(os.Stdout, snap)
			return true, err
		}
		return false, err
	}

	if snap.TotalQuestions > 0 {
		renderQuestion(os.Stdout, snap)
	}
	return false, err
}

// quit leaves the attempt open on the backend so it can be resumed.
func (a *app) quit() error {
	snap, err := a.svc.Snapshot(a.candidate.Key)
	if err == nil && !snap.State.Terminal() {
		if err := a.svc.Cancel(a.candidate.Key); err != nil {
			return err
		}
		fmt.Printf("Left the test. Resume it with: take-test take %s\n", snap.AssignmentID)
	}
	return nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, session.ErrTimeUp):
		return "Time is up. Type submit to send your answers."
	case errors.Is(err, session.ErrPaused):
		return "The test is paused. Type resume to continue."
	case errors.Is(err, session.ErrInvalidAnswer):
		return "That option does not exist for this question."
	case errors.Is(err, session.ErrNotActive):
		return "The test is not in progress."
	}
	return err.Error()
}

const helpText = `Commands:
  N or a N      answer with option N
  n, p          next / previous question
  g N           jump to question N
  pause, resume pause or resume the clock
  time          show remaining time
  submit        submit your answers
  quit          leave; the attempt stays open`
