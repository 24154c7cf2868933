package taskroot

import (
	"errors"
	"fmt"
)

// ErrLocked is returned when another controller holds the run lock for the
// same task-root.
var ErrLocked = errors.New("task-root is locked by another running controller")

// ErrEvidenceExists is returned when an evidence record is written for an
// iteration that already has one. Evidence is the primary diagnostic trail,
// so overwriting is a logic error and is always rejected.
var ErrEvidenceExists = errors.New("evidence record already exists for iteration")

// ConfigError indicates an unreadable or malformed spec, options, or state
// record. It is fatal: no state mutation has occurred when it is returned.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// PersistenceError indicates a failure to durably write state, progress, or
// evidence. Downstream correctness depends on these records existing, so it
// always propagates to the caller.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
