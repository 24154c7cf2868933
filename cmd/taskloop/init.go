package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taskloop/internal/taskroot"
)

var (
	initSpecPath   string
	initMaxIters   int
	initMaxAttempt int
	initTimeout    time.Duration
	initPromise    string
	initWorkerCmd  string
	initWorkerArgs []string
	initPTY        bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a task root from a spec",
	Long: `init creates a new task root in the target directory: it writes the
immutable spec copy, the loop configuration, an empty evidence
directory, and the initial pending state.

The spec is read from the file given with --spec, or from stdin when
--spec is "-". Initialization refuses a directory that already holds a
task root.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := taskDir()
		if err != nil {
			return err
		}

		specText, err := readSpecInput(initSpecPath)
		if err != nil {
			return err
		}

		opts := taskroot.DefaultOptions()
		if initMaxIters > 0 {
			opts.MaxIterations = initMaxIters
		}
		if initMaxAttempt > 0 {
			opts.MaxAttempts = initMaxAttempt
		}
		if initTimeout > 0 {
			opts.TimeoutPerIteration = taskroot.Duration(initTimeout)
		}
		if initPromise != "" {
			opts.PromiseText = initPromise
		}
		if initWorkerCmd != "" {
			opts.Worker.Command = initWorkerCmd
		}
		if len(initWorkerArgs) > 0 {
			opts.Worker.Args = initWorkerArgs
		}
		opts.Worker.PTY = initPTY

		root, err := taskroot.Init(dir, specText, opts)
		if err != nil {
			return err
		}

		fmt.Println(goodStyle.Render("initialized task root ") + boldStyle.Render(root.Dir()))
		fmt.Println(mutedStyle.Render("  spec    ") + root.SpecPath())
		fmt.Println(mutedStyle.Render("  config  ") + root.ConfigPath())
		fmt.Println(mutedStyle.Render("  state   ") + root.StatePath())
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initSpecPath, "spec", "", "Path to the task spec file, or - for stdin (required)")
	initCmd.Flags().IntVar(&initMaxIters, "max-iterations", 0, "Iteration ceiling (default 25)")
	initCmd.Flags().IntVar(&initMaxAttempt, "max-attempts", 0, "Consecutive-failure budget (default 5)")
	initCmd.Flags().DurationVar(&initTimeout, "timeout", 0, "Per-iteration timeout (default 30m)")
	initCmd.Flags().StringVar(&initPromise, "promise", "", "Completion promise text (default COMPLETE)")
	initCmd.Flags().StringVar(&initWorkerCmd, "worker", "", "Worker command (default agent)")
	initCmd.Flags().StringArrayVar(&initWorkerArgs, "worker-arg", nil, "Base worker argument (repeatable)")
	initCmd.Flags().BoolVar(&initPTY, "pty", false, "Run the worker under a pseudo-terminal")
	initCmd.MarkFlagRequired("spec")
}

func readSpecInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading spec: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("spec is empty")
	}
	return string(data), nil
}
