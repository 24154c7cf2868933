package taskroot

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// State is the mutable control record for one task-root. The controller is
// its sole writer after Init; external tools may read it concurrently.
type State struct {
	// Iteration is the number of completed worker invocations. Never
	// decreases across the task-root's lifetime, including restarts.
	Iteration int `json:"iteration"`

	// Attempts counts consecutive failed iterations. Reset to zero by any
	// successful iteration or by an explicit operator reset.
	Attempts int `json:"attempts"`

	// Status is the loop lifecycle state.
	Status Status `json:"status"`

	// PromiseText is the completion marker literal configured at Init.
	PromiseText string `json:"promise_text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoadState reads and validates the state record. An unreadable or
// malformed record is a ConfigError; no mutation occurs.
func (r *Root) LoadState() (*State, error) {
	data, err := os.ReadFile(r.StatePath())
	if err != nil {
		return nil, &ConfigError{Path: r.StatePath(), Err: err}
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, &ConfigError{Path: r.StatePath(), Err: err}
	}
	if st.Iteration < 0 || st.Attempts < 0 {
		return nil, &ConfigError{
			Path: r.StatePath(),
			Err:  fmt.Errorf("negative counter (iteration=%d attempts=%d)", st.Iteration, st.Attempts),
		}
	}
	return &st, nil
}

// SaveState durably replaces the state record. The write is atomic (temp
// file + rename) so a crash mid-write never leaves a record with
// inconsistent iteration/attempts/status.
func (r *Root) SaveState(st *State) error {
	st.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return &PersistenceError{Path: r.StatePath(), Err: err}
	}

	tmpPath := r.StatePath() + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return &PersistenceError{Path: tmpPath, Err: err}
	}
	if err := os.Rename(tmpPath, r.StatePath()); err != nil {
		return &PersistenceError{Path: r.StatePath(), Err: err}
	}
	return nil
}
