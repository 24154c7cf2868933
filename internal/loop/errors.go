package loop

import (
	"fmt"

	"taskloop/internal/taskroot"
)

// AlreadyTerminalError is the guard error for run requests against a loop
// that already reached a terminal status. The request is an idempotent
// no-op: no state is mutated and no evidence is written.
type AlreadyTerminalError struct {
	Status taskroot.Status
}

func (e *AlreadyTerminalError) Error() string {
	return fmt.Sprintf("loop already terminal (status=%s); nothing to run", e.Status)
}

// BlockedError is the guard error for run requests against a blocked loop.
// The operator must clear the block report and reset before resuming.
type BlockedError struct {
	ReportPath string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("loop is blocked; inspect %s and run reset before resuming", e.ReportPath)
}
