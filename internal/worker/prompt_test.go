package worker

import (
	"strings"
	"testing"
)

func TestContainsPromise(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		promise string
		want    bool
	}{
		{
			name:    "exact marker",
			output:  "<promise>COMPLETE</promise>",
			promise: "COMPLETE",
			want:    true,
		},
		{
			name:    "marker embedded in surrounding text",
			output:  "all done\n<promise>COMPLETE</promise>\nbye",
			promise: "COMPLETE",
			want:    true,
		},
		{
			name:    "promise text without delimiters",
			output:  "the task is COMPLETE now",
			promise: "COMPLETE",
			want:    false,
		},
		{
			name:    "wrong promise text",
			output:  "<promise>DONE</promise>",
			promise: "COMPLETE",
			want:    false,
		},
		{
			name:    "whitespace inside delimiters",
			output:  "<promise> COMPLETE </promise>",
			promise: "COMPLETE",
			want:    false,
		},
		{
			name:    "unterminated marker",
			output:  "<promise>COMPLETE",
			promise: "COMPLETE",
			want:    false,
		},
		{
			name:    "empty output",
			output:  "",
			promise: "COMPLETE",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsPromise(tt.output, tt.promise); got != tt.want {
				t.Errorf("ContainsPromise(%q, %q) = %v, want %v", tt.output, tt.promise, got, tt.want)
			}
		})
	}
}

func TestRenderPrompt(t *testing.T) {
	prompt := RenderPrompt(Invocation{
		SpecText:     "build the widget\nwith care",
		Iteration:    7,
		PromiseText:  "COMPLETE",
		ProgressPath: "/task/progress.jsonl",
		EvidenceDir:  "/task/evidence",
	})

	for _, want := range []string{
		"iteration 7",
		"no memory of previous iterations",
		"/task/progress.jsonl",
		"/task/evidence",
		PromiseMarker("COMPLETE"),
		"# Task",
		"build the widget\nwith care",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	// Re-anchoring instructions come before the task body.
	if strings.Index(prompt, "progress.jsonl") > strings.Index(prompt, "# Task") {
		t.Error("re-anchoring instructions should precede the task body")
	}
}

func TestRenderPromptWithoutPromise(t *testing.T) {
	prompt := RenderPrompt(Invocation{
		SpecText:  "do the thing",
		Iteration: 1,
	})
	if strings.Contains(prompt, PromiseOpen) {
		t.Error("prompt should not mention a promise marker when none is configured")
	}
}

func TestParseDisposition(t *testing.T) {
	for _, d := range []Disposition{DispositionSuccess, DispositionFailure, DispositionTimeout} {
		got, err := ParseDisposition(d.String())
		if err != nil {
			t.Fatalf("ParseDisposition(%q): %v", d.String(), err)
		}
		if got != d {
			t.Errorf("ParseDisposition(%q) = %v, want %v", d.String(), got, d)
		}
	}
	if _, err := ParseDisposition("exploded"); err == nil {
		t.Error("expected error for unknown disposition")
	}
}
