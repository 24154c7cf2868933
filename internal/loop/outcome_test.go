package loop

import (
	"testing"
	"time"
)

func TestOutcomeExitCodes(t *testing.T) {
	tests := []struct {
		outcome Outcome
		code    int
	}{
		{OutcomeCompleted, 0},
		{OutcomeMaxIterations, 2},
		{OutcomeBlocked, 3},
		{OutcomeCancelled, 4},
		{Outcome(99), 1},
	}
	for _, tt := range tests {
		if got := tt.outcome.ExitCode(); got != tt.code {
			t.Errorf("%s.ExitCode() = %d, want %d", tt.outcome, got, tt.code)
		}
	}
}

func TestParseOutcomeRoundTrip(t *testing.T) {
	for _, o := range []Outcome{OutcomeCompleted, OutcomeMaxIterations, OutcomeBlocked, OutcomeCancelled} {
		got, err := ParseOutcome(o.String())
		if err != nil {
			t.Fatalf("ParseOutcome(%q): %v", o.String(), err)
		}
		if got != o {
			t.Errorf("ParseOutcome(%q) = %v, want %v", o.String(), got, o)
		}
	}
	if _, err := ParseOutcome("exploded"); err == nil {
		t.Error("expected error for unknown outcome")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{154 * time.Second, "2m34s"},
		{72 * time.Minute, "1h12m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatIterationLog(t *testing.T) {
	got := formatIterationLog(3, 25, "failure", 90*time.Second, "worker failed (exit code 1)")
	want := "[3/25] failure (1m30s) — worker failed (exit code 1)"
	if got != want {
		t.Errorf("formatIterationLog = %q, want %q", got, want)
	}

	got = formatIterationLog(1, 25, "success", time.Second, "")
	want = "[1/25] success (1s)"
	if got != want {
		t.Errorf("formatIterationLog = %q, want %q", got, want)
	}
}
