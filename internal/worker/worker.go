// Package worker abstracts spawning one isolated, stateless execution unit
// per iteration. A unit retains no memory of prior invocations: it is handed
// the spec text plus pointers to the durable progress log and evidence
// archive, and must re-anchor from those on its own.
package worker

import (
	"context"
	"time"

	"taskloop/internal/jsonutil"
)

// Disposition is the tagged exit result of one worker invocation. It
// replaces raw process exit codes as the success/failure signal.
type Disposition int

const (
	// DispositionSuccess means the unit exited cleanly.
	DispositionSuccess Disposition = iota
	// DispositionFailure means the unit exited non-zero or crashed.
	DispositionFailure
	// DispositionTimeout means the unit was killed after exceeding its budget.
	DispositionTimeout
)

// String returns a human-readable label for the disposition.
func (d Disposition) String() string {
	switch d {
	case DispositionSuccess:
		return "success"
	case DispositionFailure:
		return "failure"
	case DispositionTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ParseDisposition converts a string to a Disposition value.
func ParseDisposition(s string) (Disposition, error) {
	switch s {
	case "success":
		return DispositionSuccess, nil
	case "failure":
		return DispositionFailure, nil
	case "timeout":
		return DispositionTimeout, nil
	default:
		return 0, jsonutil.ParseEnumError("Disposition", s)
	}
}

// MarshalJSON implements json.Marshaler.
func (d Disposition) MarshalJSON() ([]byte, error) {
	return jsonutil.MarshalEnumJSON(d)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Disposition) UnmarshalJSON(data []byte) error {
	parsed, err := jsonutil.UnmarshalEnumJSON(data, ParseDisposition)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Invocation carries everything one execution unit needs to work a single
// iteration from a cold start.
type Invocation struct {
	// SpecText is the full immutable task specification.
	SpecText string

	// Iteration is the 1-based number of this invocation.
	Iteration int

	// Timeout bounds the invocation; the unit is killed on expiry.
	Timeout time.Duration

	// PromiseText is the marker the unit must emit inside the promise
	// delimiter to declare the task complete.
	PromiseText string

	// WorkDir is where the unit runs and mutates external state.
	WorkDir string

	// ProgressPath and EvidenceDir point at the durable records the unit
	// reads to reconstruct working context.
	ProgressPath string
	EvidenceDir  string
}

// Result holds the captured outcome of a single invocation. Output is the
// unit's full raw console output, including partial output from a killed
// process.
type Result struct {
	Output      string
	Disposition Disposition
	ExitCode    int
	Duration    time.Duration
}

// Runner spawns one isolated execution unit per call. Implementations must
// not carry any in-process state between invocations.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (*Result, error)
}
