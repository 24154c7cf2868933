package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"taskloop/internal/loop"
	"taskloop/internal/taskroot"
)

var statusTail int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the loop state without running it",
	Long: `status reads the current control state, the recent progress entries,
and the evidence count from the task root. It never modifies the root
and is safe to run while a loop is active.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := taskDir()
		if err != nil {
			return err
		}
		root, err := taskroot.Open(dir)
		if err != nil {
			return err
		}
		report, err := loop.Status(root, statusTail)
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		printStatus(root, report)
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVarP(&statusTail, "tail", "n", loop.DefaultStatusTail, "Number of recent progress entries to show")
}

func printStatus(root *taskroot.Root, report *loop.StatusReport) {
	st := report.State
	opts := root.Options()

	fmt.Println(boldStyle.Render(root.Dir()))
	fmt.Printf("  %s %s\n", mutedStyle.Render("status    "), renderStatus(st.Status))
	fmt.Printf("  %s %d/%d\n", mutedStyle.Render("iteration "), st.Iteration, opts.MaxIterations)
	fmt.Printf("  %s %d/%d\n", mutedStyle.Render("attempts  "), st.Attempts, opts.MaxAttempts)
	fmt.Printf("  %s %d\n", mutedStyle.Render("evidence  "), report.Evidence)
	if report.RunnerPID != 0 {
		fmt.Printf("  %s %d\n", mutedStyle.Render("runner pid"), report.RunnerPID)
	}
	if st.PromiseText != "" {
		fmt.Printf("  %s %s\n", mutedStyle.Render("promise   "), st.PromiseText)
	}
	fmt.Printf("  %s %s\n", mutedStyle.Render("updated   "), st.UpdatedAt.Format(time.RFC3339))

	if report.HasBlock {
		fmt.Println()
		fmt.Println(failStyle.Render("blocked") + mutedStyle.Render("  see "+root.BlockReportPath()))
	}

	if len(report.Progress) > 0 {
		fmt.Println()
		fmt.Println(mutedStyle.Render("recent iterations"))
		for _, entry := range report.Progress {
			fmt.Printf("  %s  #%-3d %-14s %s\n",
				mutedStyle.Render(entry.Timestamp.Format("2006-01-02 15:04:05")),
				entry.Iteration, entry.Outcome, entry.Summary)
		}
	}
}

func renderStatus(s taskroot.Status) string {
	switch s {
	case taskroot.StatusCompleted:
		return goodStyle.Render(s.String())
	case taskroot.StatusRunning:
		return warnStyle.Render(s.String())
	case taskroot.StatusBlocked, taskroot.StatusMaxIterations:
		return failStyle.Render(s.String())
	default:
		return s.String()
	}
}
