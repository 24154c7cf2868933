package loop

import (
	"taskloop/internal/taskroot"
)

// DefaultStatusTail is how many progress entries Status returns by default.
const DefaultStatusTail = 10

// StatusReport is the operator-facing snapshot of one task-root: the
// current state record plus a tail of the progress log.
type StatusReport struct {
	State       *taskroot.State          `json:"state"`
	Progress    []taskroot.ProgressEntry `json:"progress"`
	HasBlock    bool                     `json:"has_block_report"`
	Evidence    int                      `json:"evidence_records"`
	RunnerPID   int                      `json:"runner_pid,omitempty"`
	BlockReport string                   `json:"block_report,omitempty"`
}

// Status reads the current loop state and the last tailN progress entries.
// It is safe to call while a controller is running: every record it reads
// is either atomically replaced or append-only.
func Status(root *taskroot.Root, tailN int) (*StatusReport, error) {
	if tailN <= 0 {
		tailN = DefaultStatusTail
	}

	st, err := root.LoadState()
	if err != nil {
		return nil, err
	}
	progress, err := root.TailProgress(tailN)
	if err != nil {
		return nil, err
	}
	count, err := root.CountEvidence()
	if err != nil {
		return nil, err
	}
	pid, err := root.RunnerPID()
	if err != nil {
		return nil, err
	}

	report := &StatusReport{
		State:     st,
		Progress:  progress,
		HasBlock:  root.HasBlockReport(),
		Evidence:  count,
		RunnerPID: pid,
	}
	if report.HasBlock {
		text, err := root.ReadBlockReport()
		if err != nil {
			return nil, err
		}
		report.BlockReport = text
	}
	return report, nil
}

// Reset clears the attempt counter and removes any block report, returning
// a blocked loop to pending. The iteration counter is untouched: a
// subsequent run resumes from the current iteration, not from zero.
// Loops in a terminal status cannot be reset, and a loop with an active
// controller cannot be reset out from under it (ErrLocked).
func Reset(root *taskroot.Root) error {
	lock, err := root.AcquireRunLock()
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	st, err := root.LoadState()
	if err != nil {
		return err
	}
	if st.Status.Terminal() {
		return &AlreadyTerminalError{Status: st.Status}
	}

	if err := root.ClearBlockReport(); err != nil {
		return err
	}

	st.Attempts = 0
	if st.Status == taskroot.StatusBlocked {
		st.Status = taskroot.StatusPending
	}
	return root.SaveState(st)
}
