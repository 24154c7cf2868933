package loop

import (
	"strings"
	"testing"
	"time"

	"taskloop/internal/taskroot"
)

func failRecord(iter int, output string) *taskroot.EvidenceRecord {
	return &taskroot.EvidenceRecord{
		Iteration:   iter,
		Output:      output,
		Disposition: "failure",
		ExitCode:    1,
		Duration:    time.Second,
	}
}

func TestClassifyFailures(t *testing.T) {
	tests := []struct {
		name    string
		records []*taskroot.EvidenceRecord
		want    string
	}{
		{
			name:    "single record",
			records: []*taskroot.EvidenceRecord{failRecord(1, "boom")},
			want:    "single failure",
		},
		{
			name: "identical errors",
			records: []*taskroot.EvidenceRecord{
				failRecord(1, "compile error in widget.go"),
				failRecord(2, "compile error in widget.go"),
			},
			want: "repeated same error",
		},
		{
			name: "same error with different line numbers",
			records: []*taskroot.EvidenceRecord{
				failRecord(1, "widget.go:17: undefined symbol"),
				failRecord(2, "widget.go:42: undefined symbol"),
			},
			want: "repeated same error",
		},
		{
			name: "different errors",
			records: []*taskroot.EvidenceRecord{
				failRecord(1, "compile error"),
				failRecord(2, "test timeout waiting for server"),
			},
			want: "divergent errors",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyFailures(tt.records); got != tt.want {
				t.Errorf("classifyFailures = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSynthesizeBlockReport(t *testing.T) {
	records := []*taskroot.EvidenceRecord{
		failRecord(3, "error: cannot find module"),
		failRecord(4, "error: cannot find module"),
	}
	report := synthesizeBlockReport(5, records)

	for _, want := range []string{
		"# Block Report",
		"5 consecutive",
		"repeated same error",
		"Iteration 3",
		"Iteration 4",
		"cannot find module",
		"taskloop reset",
		"taskloop run",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestSynthesizeBlockReportEmptyOutput(t *testing.T) {
	report := synthesizeBlockReport(1, []*taskroot.EvidenceRecord{failRecord(1, "")})
	if !strings.Contains(report, "(no output captured)") {
		t.Error("empty output should be called out")
	}
}

func TestExcerptTail(t *testing.T) {
	long := strings.Repeat("line\n", 50) + "last"
	got := excerptTail(long, 3)
	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("excerpt has %d lines, want 3", len(lines))
	}
	if lines[2] != "last" {
		t.Errorf("excerpt should end with the final line, got %q", lines[2])
	}

	if got := excerptTail("short", 10); got != "short" {
		t.Errorf("short input should pass through, got %q", got)
	}
}
