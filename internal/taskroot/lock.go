package taskroot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
)

// RunLock is the exclusive lock a controller holds for the duration of a
// run. Two controllers can never iterate the same task-root concurrently.
type RunLock struct {
	fl      *flock.Flock
	pidPath string
}

// AcquireRunLock takes the task-root's exclusive run lock without blocking.
// If another controller holds it, ErrLocked is returned. The caller must
// Release on every exit path.
func (r *Root) AcquireRunLock() (*RunLock, error) {
	fl := flock.New(filepath.Join(r.dir, lockFile))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, &PersistenceError{Path: fl.Path(), Err: err}
	}
	if !ok {
		return nil, ErrLocked
	}

	lock := &RunLock{fl: fl, pidPath: filepath.Join(r.dir, pidFile)}

	// Record the holder's PID so `cancel` can signal it from another process.
	pid := fmt.Sprintf("%d\n", os.Getpid())
	if err := os.WriteFile(lock.pidPath, []byte(pid), 0644); err != nil {
		_ = fl.Unlock()
		return nil, &PersistenceError{Path: lock.pidPath, Err: err}
	}
	return lock, nil
}

// Release drops the lock and removes the PID record.
func (l *RunLock) Release() error {
	if err := os.Remove(l.pidPath); err != nil && !os.IsNotExist(err) {
		_ = l.fl.Unlock()
		return &PersistenceError{Path: l.pidPath, Err: err}
	}
	return l.fl.Unlock()
}

// RunnerPID returns the PID of the controller currently running against
// this task-root, or 0 if none is recorded.
func (r *Root) RunnerPID() (int, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, pidFile))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, &ConfigError{Path: filepath.Join(r.dir, pidFile), Err: err}
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, &ConfigError{Path: filepath.Join(r.dir, pidFile), Err: err}
	}
	return pid, nil
}

// ActiveRunnerPID returns the PID of a live controller holding the run
// lock, or 0 if none. The flock is the authority: a PID record left behind
// by a crashed controller (the OS released its lock, the file stayed) is
// removed rather than returned, so callers never signal a recycled PID.
func (r *Root) ActiveRunnerPID() (int, error) {
	pid, err := r.RunnerPID()
	if err != nil {
		return 0, err
	}
	if pid == 0 {
		return 0, nil
	}

	lock, err := r.AcquireRunLock()
	if errors.Is(err, ErrLocked) {
		return pid, nil
	}
	if err != nil {
		return 0, err
	}
	// The lock was free, so no controller is running and the record is
	// stale. Release cleans up the PID file we just rewrote.
	return 0, lock.Release()
}
