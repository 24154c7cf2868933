package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskloop/internal/loop"
	"taskloop/internal/taskroot"
	"taskloop/internal/telemetry"
	"taskloop/internal/worker"
)

var runWorkDir string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the iteration loop to a terminal state",
	Long: `run acquires the task root's run lock and drives the worker loop
until the task completes, blocks on repeated failures, hits the
iteration ceiling, or is interrupted.

An interrupt (Ctrl-C or SIGTERM) stops cleanly after the current
iteration's evidence is recorded; the loop can be resumed with another
run. Exit codes: 0 completed, 2 max iterations, 3 blocked, 4 cancelled.

Environment overrides (take precedence over config.yaml):
  TASKLOOP_WORKER_COMMAND   Worker binary
  TASKLOOP_MAX_ITERATIONS   Iteration ceiling
  TASKLOOP_MAX_ATTEMPTS     Consecutive-failure budget
  TASKLOOP_TIMEOUT          Per-iteration timeout (e.g. 30m)`,
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

		opts := root.Options()
		applyEnvOverrides(&opts)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		tel, err := telemetry.NewProvider(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, warnStyle.Render("telemetry disabled: "+err.Error()))
		}
		if tel != nil {
			defer func() {
				shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				tel.Shutdown(shutCtx)
			}()
		}

		runnerOpts := []worker.Option{
			worker.WithCommand(opts.Worker.Command, opts.Worker.Args...),
			worker.WithPTY(opts.Worker.PTY),
		}
		if !verbose {
			runnerOpts = append(runnerOpts, worker.WithOutputWriter(io.Discard))
		}

		ctrl := &loop.Controller{
			Root:    root,
			Runner:  worker.NewExecRunner(runnerOpts...),
			WorkDir: runWorkDir,
			Verbose: verbose,
			Tracer:  tel.Tracer(),
		}

		res, err := ctrl.Run(ctx)
		if err != nil {
			return describeGuard(err)
		}
		// The exit code is applied in main() after Execute returns, so the
		// deferred telemetry shutdown flushes its spans first.
		return outcomeExit(res.Outcome)
	},
}

// outcomeExit maps a finished run's outcome to the error that carries its
// process exit code. A completed run is a plain success.
func outcomeExit(o loop.Outcome) error {
	if o == loop.OutcomeCompleted {
		return nil
	}
	return &outcomeExitError{outcome: o}
}

func init() {
	runCmd.Flags().StringVar(&runWorkDir, "workdir", "", "Directory the worker runs in (default: the task root)")
}

// applyEnvOverrides layers TASKLOOP_* environment variables over the
// persisted config for this run only; config.yaml is not rewritten.
func applyEnvOverrides(opts *taskroot.Options) {
	v := viper.New()
	v.SetEnvPrefix("TASKLOOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd := v.GetString("worker_command"); cmd != "" {
		opts.Worker.Command = cmd
	}
	if n := v.GetInt("max_iterations"); n > 0 {
		opts.MaxIterations = n
	}
	if n := v.GetInt("max_attempts"); n > 0 {
		opts.MaxAttempts = n
	}
	if d := v.GetDuration("timeout"); d > 0 {
		opts.TimeoutPerIteration = taskroot.Duration(d)
	}
}

// describeGuard rewraps guard errors with operator guidance.
func describeGuard(err error) error {
	var terminal *loop.AlreadyTerminalError
	if errors.As(err, &terminal) {
		return fmt.Errorf("%w (use 'taskloop status' to inspect)", err)
	}
	var blocked *loop.BlockedError
	if errors.As(err, &blocked) {
		return fmt.Errorf("%w (use 'taskloop reset' to clear the block)", err)
	}
	if errors.Is(err, taskroot.ErrLocked) {
		return fmt.Errorf("%w (use 'taskloop cancel' to stop the active run)", err)
	}
	return err
}
