package worker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Test-helper process
// ---------------------------------------------------------------------------
//
// Tests use the "TestHelperProcess" pattern: re-exec the test binary with a
// sentinel env var so the child behaves as a fake worker. This lets us test
// the plumbing (exit codes, output capture, timeouts) without a real agent
// binary.

func TestHelperProcess(t *testing.T) {
	if os.Getenv("TL_TEST_HELPER") != "1" {
		return // not the helper invocation
	}
	switch os.Getenv("TL_TEST_MODE") {
	case "echo":
		// Echo args after "--" to stdout, nothing to stderr.
		args := os.Args[1:]
		for i, a := range args {
			if a == "--" {
				args = args[i+1:]
				break
			}
		}
		for i, a := range args {
			if i > 0 {
				fmt.Print(" ")
			}
			fmt.Print(a)
		}
	case "stderr":
		fmt.Fprint(os.Stderr, "worker error output")
	case "exit":
		code, _ := strconv.Atoi(os.Getenv("TL_EXIT_CODE"))
		os.Exit(code)
	case "slow":
		// Sleep longer than the test timeout to trigger kill.
		time.Sleep(30 * time.Second)
	default:
		fmt.Fprintln(os.Stderr, "unknown TL_TEST_MODE")
		os.Exit(2)
	}
	os.Exit(0)
}

// helperFactory returns a CommandFactory that re-invokes the current test
// binary as the helper process.
func helperFactory(mode string, envExtra ...string) CommandFactory {
	return func(ctx context.Context, workDir string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=^TestHelperProcess$", "--"}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Dir = workDir
		cmd.Env = append(os.Environ(),
			"TL_TEST_HELPER=1",
			"TL_TEST_MODE="+mode,
		)
		cmd.Env = append(cmd.Env, envExtra...)
		return cmd
	}
}

func testInvocation(timeout time.Duration) Invocation {
	return Invocation{
		SpecText:    "build the widget",
		Iteration:   1,
		Timeout:     timeout,
		PromiseText: "COMPLETE",
		WorkDir:     os.TempDir(),
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestExecRunner_CapturesOutput(t *testing.T) {
	var live bytes.Buffer
	r := NewExecRunner(
		WithCommand("worker", "--flag-a", "--flag-b"),
		WithCommandFactory(helperFactory("echo")),
		WithOutputWriter(&live),
	)

	result, err := r.Run(context.Background(), testInvocation(5*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Disposition != DispositionSuccess {
		t.Errorf("disposition = %s, want success", result.Disposition)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
	// The echo helper prints the full argv: base args then the prompt.
	if !strings.HasPrefix(result.Output, "--flag-a --flag-b ") {
		t.Errorf("output missing base args: %q", excerpt(result.Output))
	}
	if !strings.Contains(result.Output, "build the widget") {
		t.Errorf("output missing spec text: %q", excerpt(result.Output))
	}
	// Live writer should have received the same content.
	if live.String() != result.Output {
		t.Error("live writer diverged from captured output")
	}
	if result.Duration <= 0 {
		t.Error("duration should be positive")
	}
}

func TestExecRunner_MergesStderr(t *testing.T) {
	r := NewExecRunner(
		WithCommandFactory(helperFactory("stderr")),
		WithOutputWriter(&bytes.Buffer{}),
	)

	result, err := r.Run(context.Background(), testInvocation(5*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Output, "worker error output") {
		t.Errorf("stderr not merged into output: %q", result.Output)
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	r := NewExecRunner(
		WithCommandFactory(helperFactory("exit", "TL_EXIT_CODE=42")),
		WithOutputWriter(&bytes.Buffer{}),
	)

	result, err := r.Run(context.Background(), testInvocation(5*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Disposition != DispositionFailure {
		t.Errorf("disposition = %s, want failure", result.Disposition)
	}
	if result.ExitCode != 42 {
		t.Errorf("exit code = %d, want 42", result.ExitCode)
	}
}

func TestExecRunner_TimeoutKillsProcess(t *testing.T) {
	r := NewExecRunner(
		WithCommandFactory(helperFactory("slow")),
		WithOutputWriter(&bytes.Buffer{}),
	)

	start := time.Now()
	result, err := r.Run(context.Background(), testInvocation(200*time.Millisecond))
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Disposition != DispositionTimeout {
		t.Errorf("disposition = %s, want timeout", result.Disposition)
	}
	// Should complete well under the helper's 30s sleep.
	if elapsed > 3*time.Second {
		t.Errorf("timeout did not kill process promptly (elapsed %v)", elapsed)
	}
}

func TestExecRunner_CancelIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	r := NewExecRunner(
		WithCommandFactory(helperFactory("slow")),
		WithOutputWriter(&bytes.Buffer{}),
	)

	result, err := r.Run(ctx, testInvocation(30*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// An operator interrupt kills the process but is not a deadline expiry.
	if result.Disposition == DispositionTimeout {
		t.Error("operator cancellation misreported as timeout")
	}
	if result.ExitCode == 0 {
		t.Error("expected non-zero exit code after cancellation")
	}
}

func TestExecRunner_SpawnError(t *testing.T) {
	r := NewExecRunner(
		WithCommand("/nonexistent/taskloop-no-such-worker"),
		WithOutputWriter(&bytes.Buffer{}),
	)

	_, err := r.Run(context.Background(), testInvocation(5*time.Second))
	if err == nil {
		t.Fatal("expected error when the worker binary does not exist")
	}
}

func excerpt(s string) string {
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
