package loop

import (
	"fmt"
	"strings"
	"time"

	"taskloop/internal/taskroot"
)

// blockExcerptRecords is how many recent evidence records feed the report.
const blockExcerptRecords = 3

// blockExcerptLines caps the output tail quoted per record.
const blockExcerptLines = 20

// synthesizeBlockReport builds the advisory markdown written on transition
// to blocked: consecutive-failure count, excerpts of the most recent
// evidence records, and a heuristic classification of the failure pattern.
// The controller performs no automatic remediation.
func synthesizeBlockReport(attempts int, records []*taskroot.EvidenceRecord) string {
	var b strings.Builder

	b.WriteString("# Block Report\n\n")
	b.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().UTC().Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf(
		"The loop stopped after %d consecutive failed iteration(s) with no intervening success or completion marker.\n\n",
		attempts))

	b.WriteString(fmt.Sprintf("Failure pattern: **%s**\n\n", classifyFailures(records)))

	b.WriteString("## Recent evidence\n\n")
	for _, rec := range records {
		b.WriteString(fmt.Sprintf("### Iteration %d — %s (exit %d, %s)\n\n",
			rec.Iteration, rec.Disposition, rec.ExitCode, formatDuration(rec.Duration)))
		excerpt := excerptTail(rec.Output, blockExcerptLines)
		if excerpt == "" {
			excerpt = "(no output captured)"
		}
		b.WriteString("```\n")
		b.WriteString(excerpt)
		b.WriteString("\n```\n\n")
	}

	b.WriteString("## Remediation\n\n")
	b.WriteString("1. Inspect the evidence records above (full records under evidence/).\n")
	b.WriteString("2. Fix the underlying cause: amend the environment, the worker setup, or split the task.\n")
	b.WriteString("3. Run `taskloop reset` to clear this report and the attempt counter.\n")
	b.WriteString("4. Run `taskloop run` again; the loop resumes from its current iteration.\n")

	return b.String()
}

// classifyFailures distinguishes a loop wedged on one error from a loop
// failing differently each time. It compares normalized output tails:
// matching tails across all records mean the same error keeps recurring.
func classifyFailures(records []*taskroot.EvidenceRecord) string {
	if len(records) < 2 {
		return "single failure"
	}

	first := normalizeFailureTail(records[0].Output)
	same := true
	for _, rec := range records[1:] {
		if normalizeFailureTail(rec.Output) != first {
			same = false
			break
		}
	}
	if same && first != "" {
		return "repeated same error"
	}
	return "divergent errors"
}

// normalizeFailureTail reduces an output tail to a comparable signature:
// digits are stripped so line numbers, counters, and timestamps do not make
// identical errors look distinct.
func normalizeFailureTail(output string) string {
	tail := excerptTail(output, 5)
	var b strings.Builder
	for _, r := range tail {
		switch {
		case r >= '0' && r <= '9':
			// skip
		case r == ' ' || r == '\t':
			// collapse below
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
