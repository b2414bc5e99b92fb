package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/stemsi/testcenter/internal/model"
	"github.com/stemsi/testcenter/internal/service"
)

func testsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tests",
		Short: "List assigned tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			tests, err := a.svc.ListAvailable(cmd.Context(), a.candidate)
			if err != nil {
				return err
			}
			if len(tests) == 0 {
				color.Yellow("No tests assigned.")
				return nil
			}
			renderTests(tests)
			return nil
		},
	}
}

func resultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results",
		Short: "List completed tests and scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			results, err := a.svc.ListResults(cmd.Context(), a.candidate)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				color.Yellow("No completed tests yet.")
				return nil
			}
			renderResults(results)
			return nil
		},
	}
}

func renderTests(tests []service.AvailableTest) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Title", "Questions", "Time Limit", "Expires", "Status"})
	for _, t := range tests {
		table.Append([]string{
			t.ID.String(),
			t.DisplayTitle(),
			strconv.Itoa(t.TotalQuestions),
			minutesLabel(t.TimeLimit()),
			timeLabel(t.ExpiresAt),
			badgeLabel(t),
		})
	}
	table.Render()
}

func renderResults(results []model.TestResult) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Title", "Score", "Result", "Completed"})
	for _, r := range results {
		table.Append([]string{
			r.ID.String(),
			r.Title,
			color.CyanString(model.FormatScore(r.Score)),
			r.Result,
			timeLabel(r.CompletedAt),
		})
	}
	table.Render()
}

func badgeLabel(t service.AvailableTest) string {
	switch t.Badge {
	case "Expired":
		return color.RedString(t.Badge)
	case "Completed":
		return color.GreenString(t.Badge)
	case "":
		return string(t.EffectiveStatus)
	}
	return color.YellowString(t.Badge)
}

func minutesLabel(m int) string {
	if m <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d min", m)
}

func timeLabel(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func secondsDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}
