package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/creack/pty"
)

// DefaultTimeout bounds a worker invocation when the Invocation carries no
// explicit timeout.
const DefaultTimeout = 30 * time.Minute

// CommandFactory builds an *exec.Cmd for the given context, working
// directory, and arguments. The default factory uses exec.CommandContext
// with the configured worker binary. Tests inject a factory that invokes a
// helper process instead.
type CommandFactory func(ctx context.Context, workDir string, args ...string) *exec.Cmd

// ExecRunner implements Runner by spawning one worker process per
// invocation. Stdout and stderr are merged into a single raw output stream,
// tee'd to a live writer for observability while also being captured.
type ExecRunner struct {
	command        string
	baseArgs       []string
	commandFactory CommandFactory
	outputWriter   io.Writer
	usePTY         bool
}

// Ensure ExecRunner implements Runner.
var _ Runner = (*ExecRunner)(nil)

// Option configures an ExecRunner.
type Option func(*ExecRunner)

// WithCommand sets the worker binary and base arguments placed before the
// rendered prompt.
func WithCommand(command string, args ...string) Option {
	return func(r *ExecRunner) {
		r.command = command
		r.baseArgs = args
	}
}

// WithCommandFactory injects a custom command factory (used in tests).
func WithCommandFactory(f CommandFactory) Option {
	return func(r *ExecRunner) { r.commandFactory = f }
}

// WithOutputWriter overrides the live output writer (default os.Stdout).
func WithOutputWriter(w io.Writer) Option {
	return func(r *ExecRunner) { r.outputWriter = w }
}

// WithPTY allocates a pseudo-terminal for the worker process. Some agent
// CLIs refuse to stream output without one.
func WithPTY(enabled bool) Option {
	return func(r *ExecRunner) { r.usePTY = enabled }
}

// NewExecRunner creates an ExecRunner with the given options.
func NewExecRunner(opts ...Option) *ExecRunner {
	r := &ExecRunner{
		command:      "agent",
		baseArgs:     []string{"--print", "--force"},
		outputWriter: os.Stdout,
	}
	for _, o := range opts {
		o(r)
	}
	if r.commandFactory == nil {
		r.commandFactory = r.defaultCommandFactory
	}
	return r
}

// defaultCommandFactory creates the real worker command.
func (r *ExecRunner) defaultCommandFactory(ctx context.Context, workDir string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, r.command, args...)
	cmd.Dir = workDir
	return cmd
}

// Run spawns one worker process for the invocation and captures its output.
// The process is killed if ctx is cancelled or the invocation timeout
// elapses; partial output produced up to termination is still captured.
// An error is returned only when the process could not be started at all.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	timeout := inv.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// Derive a timeout context so the process is killed on expiry.
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := RenderPrompt(inv)
	args := append(append([]string{}, r.baseArgs...), prompt)
	cmd := r.commandFactory(runCtx, inv.WorkDir, args...)

	var buf bytes.Buffer
	sink := io.MultiWriter(&buf, r.outputWriter)

	start := time.Now()
	var runErr error
	if r.usePTY {
		runErr = r.runPTY(cmd, sink)
	} else {
		cmd.Stdout = sink
		cmd.Stderr = sink
		runErr = cmd.Run()
	}
	duration := time.Since(start)

	// Distinguish the per-invocation deadline from an operator interrupt:
	// only the former is a timeout disposition.
	timedOut := runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil

	exitCode := 0
	if runErr != nil {
		exitErr, ok := runErr.(*exec.ExitError)
		if !ok {
			return nil, fmt.Errorf("failed to run worker: %w", runErr)
		}
		exitCode = exitErr.ExitCode()
	}

	disposition := DispositionSuccess
	switch {
	case timedOut:
		disposition = DispositionTimeout
	case exitCode != 0:
		disposition = DispositionFailure
	}

	return &Result{
		Output:      buf.String(),
		Disposition: disposition,
		ExitCode:    exitCode,
		Duration:    duration,
	}, nil
}

// runPTY runs cmd attached to a pseudo-terminal, draining its output into
// sink until the terminal closes.
func (r *ExecRunner) runPTY(cmd *exec.Cmd, sink io.Writer) error {
	f, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer f.Close()

	// The pty read side returns an error when the child exits; that is the
	// normal end-of-stream signal, not a failure.
	_, _ = io.Copy(sink, f)

	return cmd.Wait()
}
