package loop

import (
	"taskloop/internal/jsonutil"
)

// Outcome indicates which terminal condition ended a run. Downstream
// automation branches on this, so each maps to a distinct exit code.
type Outcome int

const (
	// OutcomeCompleted means the worker emitted the completion marker.
	OutcomeCompleted Outcome = iota
	// OutcomeMaxIterations means the hard iteration ceiling was reached.
	OutcomeMaxIterations
	// OutcomeBlocked means the consecutive-failure budget was exhausted.
	OutcomeBlocked
	// OutcomeCancelled means an operator interrupt stopped the run.
	OutcomeCancelled
)

// String returns a human-readable label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeMaxIterations:
		return "max-iterations"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ExitCode returns a distinct process exit code for each outcome.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeCompleted:
		return 0
	case OutcomeMaxIterations:
		return 2
	case OutcomeBlocked:
		return 3
	case OutcomeCancelled:
		return 4
	default:
		return 1
	}
}

// ParseOutcome converts a string to an Outcome value.
func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "completed":
		return OutcomeCompleted, nil
	case "max-iterations":
		return OutcomeMaxIterations, nil
	case "blocked":
		return OutcomeBlocked, nil
	case "cancelled":
		return OutcomeCancelled, nil
	default:
		return 0, jsonutil.ParseEnumError("Outcome", s)
	}
}

// MarshalJSON implements json.Marshaler.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return jsonutil.MarshalEnumJSON(o)
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	parsed, err := jsonutil.UnmarshalEnumJSON(data, ParseOutcome)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
