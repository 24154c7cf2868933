// Package loop implements the autonomous iteration controller: the state
// machine that repeatedly invokes an isolated worker against an immutable
// task spec, persists all control state and evidence between invocations,
// and enforces the stop conditions (iteration ceiling, consecutive-failure
// budget, per-iteration timeout, explicit completion marker).
package loop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"taskloop/internal/taskroot"
	"taskloop/internal/worker"
)

// Controller orchestrates the iteration loop for one task-root. It is the
// sole writer of state, progress, and evidence while it holds the run lock.
// The task-root handle is explicit: multiple independent controllers may
// coexist in one process, each bound to its own root.
type Controller struct {
	// Root is the durable task-root this controller governs.
	Root *taskroot.Root

	// Runner spawns one isolated execution unit per iteration.
	Runner worker.Runner

	// WorkDir is where the worker runs. Empty means the task-root directory.
	WorkDir string

	// Output is where human-readable progress lines are written.
	// Defaults to os.Stdout.
	Output io.Writer

	// Tracer, when set, wraps each iteration in a span.
	Tracer trace.Tracer

	// Verbose enables worker output excerpts in the log.
	Verbose bool

	// SleepFn overrides the inter-failure delay (used in tests).
	// nil means a context-aware real sleep.
	SleepFn func(ctx context.Context, d time.Duration)
}

// RunResult holds the aggregate outcome of one Run invocation.
type RunResult struct {
	Outcome    Outcome
	Iterations int
	Succeeded  int
	Failed     int
	TimedOut   int
	Duration   time.Duration
}

// Run executes the loop until a terminal state or operator interrupt.
// Worker-level failures are bounded retries and never propagate as errors;
// configuration and persistence failures always do.
func (c *Controller) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()

	out := c.Output
	if out == nil {
		out = os.Stdout
	}
	tracer := c.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("taskloop")
	}

	lock, err := c.Root.AcquireRunLock()
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Release() }()

	opts := c.Root.Options()

	st, err := c.Root.LoadState()
	if err != nil {
		return nil, err
	}
	switch {
	case st.Status.Terminal():
		return nil, &AlreadyTerminalError{Status: st.Status}
	case st.Status == taskroot.StatusBlocked:
		return nil, &BlockedError{ReportPath: c.Root.BlockReportPath()}
	}

	// Mark the loop running. A crash leaves status=running, which a fresh
	// controller treats as resumable.
	st.Status = taskroot.StatusRunning
	if err := c.Root.SaveState(st); err != nil {
		return nil, err
	}

	res := &RunResult{}
	delay := newFailureBackoff()

	for {
		if ctx.Err() != nil {
			if err := c.stopCancelled(res, start); err != nil {
				return res, err
			}
			return res, nil
		}

		// Re-anchor from durable storage: nothing from the previous cycle
		// is carried in memory.
		spec, err := c.Root.ReadSpec()
		if err != nil {
			return res, err
		}
		st, err = c.Root.LoadState()
		if err != nil {
			return res, err
		}

		if st.Iteration >= opts.MaxIterations {
			st.Status = taskroot.StatusMaxIterations
			if err := c.Root.SaveState(st); err != nil {
				return res, err
			}
			if err := c.Root.AppendProgress(taskroot.ProgressEntry{
				Iteration: st.Iteration,
				Outcome:   "max-iterations",
				Summary:   fmt.Sprintf("iteration ceiling %d reached", opts.MaxIterations),
			}); err != nil {
				return res, err
			}
			res.Outcome = OutcomeMaxIterations
			break
		}

		iter := st.Iteration + 1
		result, err := c.invokeWorker(ctx, tracer, spec, iter, opts)
		if err != nil {
			// The worker could not be spawned at all: an iteration-level
			// crash, not a loop-fatal error.
			result = &worker.Result{
				Output:      fmt.Sprintf("worker crashed before producing output: %v", err),
				Disposition: worker.DispositionFailure,
				ExitCode:    -1,
			}
		}

		// Evidence is written verbatim for every invocation, success or not,
		// before any state transition.
		if err := c.Root.WriteEvidence(taskroot.EvidenceRecord{
			Iteration:   iter,
			Output:      result.Output,
			Disposition: result.Disposition.String(),
			ExitCode:    result.ExitCode,
			Duration:    result.Duration,
		}); err != nil {
			return res, err
		}

		res.Iterations++

		if worker.ContainsPromise(result.Output, opts.PromiseText) {
			// Progress without completion resets the budget first, so the
			// completion check always sees attempts=0.
			st.Attempts = 0
			st.Iteration = iter
			st.Status = taskroot.StatusCompleted
			if err := c.Root.SaveState(st); err != nil {
				return res, err
			}
			if err := c.Root.AppendProgress(taskroot.ProgressEntry{
				Iteration: iter,
				Outcome:   "completed",
				Summary:   "completion marker found in worker output",
			}); err != nil {
				return res, err
			}
			res.Succeeded++
			res.Outcome = OutcomeCompleted
			writef(out, "%s\n", formatIterationLog(iter, opts.MaxIterations, "completed", result.Duration, ""))
			break
		}

		switch result.Disposition {
		case worker.DispositionSuccess:
			st.Attempts = 0
			st.Iteration = iter
			if err := c.Root.SaveState(st); err != nil {
				return res, err
			}
			if err := c.Root.AppendProgress(taskroot.ProgressEntry{
				Iteration: iter,
				Outcome:   "success",
				Summary:   "worker exited cleanly; no completion marker",
			}); err != nil {
				return res, err
			}
			res.Succeeded++
			delay.Reset()
			writef(out, "%s\n", formatIterationLog(iter, opts.MaxIterations, "success", result.Duration, ""))

		default: // failure or timeout
			st.Attempts++
			st.Iteration = iter

			summary := fmt.Sprintf("worker failed (exit code %d)", result.ExitCode)
			if result.Disposition == worker.DispositionTimeout {
				summary = fmt.Sprintf("worker timed out after %s", formatDuration(time.Duration(opts.TimeoutPerIteration)))
				res.TimedOut++
			} else {
				res.Failed++
			}

			if st.Attempts >= opts.MaxAttempts {
				records, err := c.Root.LastEvidence(blockExcerptRecords)
				if err != nil {
					return res, err
				}
				if err := c.Root.WriteBlockReport(synthesizeBlockReport(st.Attempts, records)); err != nil {
					return res, err
				}
				st.Status = taskroot.StatusBlocked
				if err := c.Root.SaveState(st); err != nil {
					return res, err
				}
				if err := c.Root.AppendProgress(taskroot.ProgressEntry{
					Iteration: iter,
					Outcome:   "blocked",
					Summary:   fmt.Sprintf("%s; attempt budget %d exhausted", summary, opts.MaxAttempts),
				}); err != nil {
					return res, err
				}
				res.Outcome = OutcomeBlocked
				writef(out, "%s\n", formatIterationLog(iter, opts.MaxIterations, "blocked", result.Duration, summary))
				writef(out, "Block report written to %s\n", c.Root.BlockReportPath())
				break
			}

			if err := c.Root.SaveState(st); err != nil {
				return res, err
			}
			if err := c.Root.AppendProgress(taskroot.ProgressEntry{
				Iteration: iter,
				Outcome:   result.Disposition.String(),
				Summary:   summary,
			}); err != nil {
				return res, err
			}
			writef(out, "%s\n", formatIterationLog(iter, opts.MaxIterations, result.Disposition.String(), result.Duration, summary))
			if c.Verbose {
				printOutputExcerpt(out, result.Output)
			}
			c.sleep(ctx, delay.NextBackOff())
		}

		if res.Outcome == OutcomeBlocked {
			break
		}
	}

	res.Duration = time.Since(start)
	writef(out, "\n%s\n", formatSummary(res))
	return res, nil
}

// stopCancelled records a clean stop point after an operator interrupt.
// Prior records are untouched; status returns to pending so a fresh run
// resumes from the last durably recorded iteration.
func (c *Controller) stopCancelled(res *RunResult, start time.Time) error {
	st, err := c.Root.LoadState()
	if err != nil {
		return err
	}
	st.Status = taskroot.StatusPending
	if err := c.Root.SaveState(st); err != nil {
		return err
	}
	res.Outcome = OutcomeCancelled
	res.Duration = time.Since(start)
	return nil
}

// invokeWorker runs one isolated execution unit under a span.
func (c *Controller) invokeWorker(ctx context.Context, tracer trace.Tracer, spec string, iter int, opts taskroot.Options) (*worker.Result, error) {
	workDir := c.WorkDir
	if workDir == "" {
		workDir = c.Root.Dir()
	}

	ctx, span := tracer.Start(ctx, "taskloop.iteration",
		trace.WithAttributes(attribute.Int("taskloop.iteration", iter)))
	defer span.End()

	result, err := c.Runner.Run(ctx, worker.Invocation{
		SpecText:     spec,
		Iteration:    iter,
		Timeout:      time.Duration(opts.TimeoutPerIteration),
		PromiseText:  opts.PromiseText,
		WorkDir:      workDir,
		ProgressPath: c.Root.ProgressPath(),
		EvidenceDir:  c.Root.EvidenceDir(),
	})
	if err != nil {
		span.SetAttributes(attribute.String("taskloop.disposition", "crash"))
		return nil, err
	}
	span.SetAttributes(
		attribute.String("taskloop.disposition", result.Disposition.String()),
		attribute.Int("taskloop.exit_code", result.ExitCode),
	)
	return result, nil
}

// sleep waits between failed iterations, returning early on cancellation.
func (c *Controller) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	if c.SleepFn != nil {
		c.SleepFn(ctx, d)
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// newFailureBackoff builds the delay schedule applied between failed
// iterations; any successful iteration resets it.
func newFailureBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = time.Minute
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// printOutputExcerpt prints the tail of worker output for verbose mode.
func printOutputExcerpt(out io.Writer, output string) {
	excerpt := excerptTail(output, 10)
	if excerpt == "" {
		return
	}
	writef(out, "  output tail:\n")
	for _, line := range strings.Split(excerpt, "\n") {
		writef(out, "    %s\n", line)
	}
}

// IsGuardError reports whether err is one of the operator-facing guard
// errors (invalid run request) rather than a loop failure.
func IsGuardError(err error) bool {
	var terminal *AlreadyTerminalError
	var blocked *BlockedError
	return errors.As(err, &terminal) || errors.As(err, &blocked) || errors.Is(err, taskroot.ErrLocked)
}
