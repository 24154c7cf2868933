// Package main provides the taskloop CLI: an autonomous iteration
// controller that drives a stateless worker against a durable task root
// until the task completes, blocks, or runs out of iterations.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"taskloop/internal/loop"
)

// Global flags
var (
	rootDir    string
	verbose    bool
	jsonOutput bool
)

// Styles for output
var (
	goodStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	})
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	})
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	})
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	})
	boldStyle = lipgloss.NewStyle().Bold(true)
)

var rootCmd = &cobra.Command{
	Use:   "taskloop",
	Short: "Run an autonomous worker loop against a durable task root",
	Long: `taskloop drives a stateless worker through repeated iterations of a
single task until the worker proves completion, the consecutive-failure
budget is exhausted, or the iteration ceiling is reached.

All loop state lives in the task root directory: state.json for the
control state, progress.jsonl for the append-only iteration log,
evidence/ for one immutable record per iteration, and block-report.md
when the loop gives up.

Examples:
  taskloop init --spec task.md ./work   # Create a task root
  taskloop run -C ./work                # Run the loop to a terminal state
  taskloop status -C ./work --json      # Inspect state without running
  taskloop watch -C ./work              # Live view while a run is active
  taskloop reset -C ./work              # Clear a block and allow a re-run`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "C", ".", "Task root directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(resetCmd)
}

// outcomeExitError carries a run outcome's exit code out of a RunE closure,
// letting its deferred cleanups finish before the process exits.
type outcomeExitError struct {
	outcome loop.Outcome
}

func (e *outcomeExitError) Error() string {
	return "run ended: " + e.outcome.String()
}

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	var exit *outcomeExitError
	if errors.As(err, &exit) {
		fmt.Fprintln(os.Stderr, mutedStyle.Render(exit.Error()))
		os.Exit(exit.outcome.ExitCode())
	}
	fmt.Fprintln(os.Stderr, failStyle.Render("Error: "+err.Error()))
	os.Exit(1)
}

// taskDir resolves the --dir flag to an absolute path.
func taskDir() (string, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return "", fmt.Errorf("resolving task root %q: %w", rootDir, err)
	}
	return abs, nil
}
