package loop

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// writef writes formatted output, ignoring errors.
// Use for non-critical output where write failures are acceptable.
func writef(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// formatDuration formats a duration in a human-readable way (e.g., "2m34s", "1h12m").
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// formatIterationLog formats a per-iteration log line.
func formatIterationLog(iter, maxIter int, disposition string, duration time.Duration, summary string) string {
	line := fmt.Sprintf("[%d/%d] %s (%s)", iter, maxIter, disposition, formatDuration(duration))
	if summary != "" {
		line += " — " + summary
	}
	return line
}

// formatSummary formats the end-of-run summary.
func formatSummary(res *RunResult) string {
	lines := make([]string, 0, 7)
	lines = append(lines, "Loop finished: "+res.Outcome.String())

	if res.Succeeded > 0 {
		lines = append(lines, fmt.Sprintf("  ✓ %d iteration(s) made progress", res.Succeeded))
	}
	if res.Failed > 0 {
		lines = append(lines, fmt.Sprintf("  ✗ %d failure(s)", res.Failed))
	}
	if res.TimedOut > 0 {
		lines = append(lines, fmt.Sprintf("  ⏱ %d timeout(s)", res.TimedOut))
	}
	lines = append(lines, fmt.Sprintf("  Iterations: %d", res.Iterations))
	lines = append(lines, fmt.Sprintf("  Duration: %s", formatDuration(res.Duration)))

	return strings.Join(lines, "\n")
}

// excerptTail returns the last n non-empty lines of text, trimmed.
func excerptTail(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	var kept []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, strings.TrimRight(line, " \t"))
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, "\n")
}
