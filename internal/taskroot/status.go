package taskroot

import (
	"taskloop/internal/jsonutil"
)

// Status is the lifecycle state of a task-root loop.
type Status int

const (
	// StatusPending means the loop has been initialized (or reset) and is
	// eligible to run.
	StatusPending Status = iota
	// StatusRunning means a controller is (or was, if it crashed) executing
	// iterations against this task-root.
	StatusRunning
	// StatusCompleted means the worker emitted the completion marker. Terminal.
	StatusCompleted
	// StatusBlocked means the consecutive-failure budget was exhausted.
	// Cleared only by an explicit operator reset.
	StatusBlocked
	// StatusMaxIterations means the hard iteration ceiling was reached. Terminal.
	StatusMaxIterations
)

// String returns a human-readable label for the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusBlocked:
		return "blocked"
	case StatusMaxIterations:
		return "max_iterations"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status permits no further iterations.
// Blocked is not terminal: it can be cleared by an operator reset.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusMaxIterations
}

// ParseStatus converts a string to a Status value.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "pending":
		return StatusPending, nil
	case "running":
		return StatusRunning, nil
	case "completed":
		return StatusCompleted, nil
	case "blocked":
		return StatusBlocked, nil
	case "max_iterations":
		return StatusMaxIterations, nil
	default:
		return 0, jsonutil.ParseEnumError("Status", s)
	}
}

// MarshalJSON implements json.Marshaler.
func (s Status) MarshalJSON() ([]byte, error) {
	return jsonutil.MarshalEnumJSON(s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Status) UnmarshalJSON(data []byte) error {
	parsed, err := jsonutil.UnmarshalEnumJSON(data, ParseStatus)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
