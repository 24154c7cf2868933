package worker

import (
	"fmt"
	"strings"
)

// Promise delimiter wrapping the completion marker in worker output.
const (
	PromiseOpen  = "<promise>"
	PromiseClose = "</promise>"
)

// PromiseMarker returns the exact string a worker must emit to signal
// completion for the given promise text.
func PromiseMarker(promiseText string) string {
	return PromiseOpen + promiseText + PromiseClose
}

// ContainsPromise reports whether raw worker output contains the delimited
// completion marker. Surrounding text is irrelevant: only the exact
// delimited literal counts.
func ContainsPromise(output, promiseText string) bool {
	return strings.Contains(output, PromiseMarker(promiseText))
}

// RenderPrompt builds the full prompt for one invocation. Because the unit
// starts with no memory of prior iterations, the prompt front-loads the
// re-anchoring instructions: read the progress log and evidence archive
// before touching anything.
func RenderPrompt(inv Invocation) string {
	var b strings.Builder

	b.WriteString("You are one iteration of an autonomous work loop. ")
	b.WriteString(fmt.Sprintf("This is iteration %d. ", inv.Iteration))
	b.WriteString("You have no memory of previous iterations.\n\n")

	b.WriteString("Before doing anything else, reconstruct context from durable state:\n")
	if inv.ProgressPath != "" {
		b.WriteString(fmt.Sprintf("- Read the progress log at %s for what prior iterations did.\n", inv.ProgressPath))
	}
	if inv.EvidenceDir != "" {
		b.WriteString(fmt.Sprintf("- Read recent records under %s for prior raw output, especially failures.\n", inv.EvidenceDir))
	}
	b.WriteString("- Inspect the working tree and version-control state for work already landed.\n\n")

	b.WriteString("Then make real progress on the task below. ")
	b.WriteString("Work on the most important unfinished piece; do not redo completed work.\n\n")

	if inv.PromiseText != "" {
		b.WriteString(fmt.Sprintf(
			"Only when the ENTIRE task is verifiably complete, print exactly %s on its own line. ",
			PromiseMarker(inv.PromiseText)))
		b.WriteString("Never print it otherwise.\n\n")
	}

	b.WriteString("# Task\n\n")
	b.WriteString(inv.SpecText)

	return b.String()
}
