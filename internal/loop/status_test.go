package loop

import (
	"errors"
	"testing"

	"taskloop/internal/taskroot"
)

func TestStatusReport(t *testing.T) {
	root := newTestRoot(t, nil)
	for i := 1; i <= 4; i++ {
		if err := root.AppendProgress(taskroot.ProgressEntry{Iteration: i, Outcome: "success"}); err != nil {
			t.Fatalf("append progress: %v", err)
		}
		if err := root.WriteEvidence(taskroot.EvidenceRecord{Iteration: i}); err != nil {
			t.Fatalf("write evidence: %v", err)
		}
	}

	report, err := Status(root, 2)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if report.State.Status != taskroot.StatusPending {
		t.Errorf("status = %s, want pending", report.State.Status)
	}
	if len(report.Progress) != 2 {
		t.Errorf("progress tail = %d entries, want 2", len(report.Progress))
	}
	if report.Progress[1].Iteration != 4 {
		t.Errorf("tail ends at iteration %d, want 4", report.Progress[1].Iteration)
	}
	if report.Evidence != 4 {
		t.Errorf("evidence = %d, want 4", report.Evidence)
	}
	if report.HasBlock {
		t.Error("no block report expected")
	}
	if report.RunnerPID != 0 {
		t.Errorf("runner pid = %d, want 0", report.RunnerPID)
	}
}

func TestStatusIncludesBlockReport(t *testing.T) {
	root := newTestRoot(t, nil)
	if err := root.WriteBlockReport("# Block Report\n\nstuck"); err != nil {
		t.Fatalf("write block report: %v", err)
	}

	report, err := Status(root, 0)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !report.HasBlock {
		t.Fatal("block report not surfaced")
	}
	if report.BlockReport == "" {
		t.Error("block report text missing")
	}
}

func TestResetClearsBlock(t *testing.T) {
	root := newTestRoot(t, nil)
	st := mustState(t, root)
	st.Status = taskroot.StatusBlocked
	st.Attempts = 3
	st.Iteration = 7
	if err := root.SaveState(st); err != nil {
		t.Fatalf("save state: %v", err)
	}
	if err := root.WriteBlockReport("stuck"); err != nil {
		t.Fatalf("write block report: %v", err)
	}

	if err := Reset(root); err != nil {
		t.Fatalf("reset: %v", err)
	}

	got := mustState(t, root)
	if got.Status != taskroot.StatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
	if got.Attempts != 0 {
		t.Errorf("attempts = %d, want 0", got.Attempts)
	}
	// History is preserved: the iteration counter never goes backwards.
	if got.Iteration != 7 {
		t.Errorf("iteration = %d, want 7", got.Iteration)
	}
	if root.HasBlockReport() {
		t.Error("block report should be cleared")
	}
}

func TestResetRefusedWhileRunning(t *testing.T) {
	root := newTestRoot(t, nil)
	st := mustState(t, root)
	st.Status = taskroot.StatusBlocked
	st.Attempts = 3
	if err := root.SaveState(st); err != nil {
		t.Fatalf("save state: %v", err)
	}

	lock, err := root.AcquireRunLock()
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	defer lock.Release()

	// A reset racing an active controller's read-modify-write would lose
	// updates, so it must be refused outright.
	if err := Reset(root); !errors.Is(err, taskroot.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	got := mustState(t, root)
	if got.Attempts != 3 || got.Status != taskroot.StatusBlocked {
		t.Errorf("refused reset mutated state: attempts=%d status=%s", got.Attempts, got.Status)
	}
}

func TestResetTerminalRefused(t *testing.T) {
	root := newTestRoot(t, nil)
	st := mustState(t, root)
	st.Status = taskroot.StatusCompleted
	if err := root.SaveState(st); err != nil {
		t.Fatalf("save state: %v", err)
	}

	err := Reset(root)
	var terminal *AlreadyTerminalError
	if !errors.As(err, &terminal) {
		t.Fatalf("expected AlreadyTerminalError, got %v", err)
	}
}
