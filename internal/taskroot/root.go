// Package taskroot implements the durable storage layer for one task
// lineage: the immutable spec, the mutable loop state record, the
// append-only progress log, the per-iteration evidence archive, and the
// conditional block report. All cross-iteration state lives here; the
// controller reconstructs its context from this directory at the top of
// every cycle.
package taskroot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// File names inside a task-root directory.
const (
	SpecFile        = "spec.md"
	ConfigFile      = "config.yaml"
	StateFile       = "state.json"
	ProgressFile    = "progress.jsonl"
	EvidenceDirName = "evidence"
	BlockReportFile = "block-report.md"
	lockFile        = "run.lock"
	pidFile         = "run.pid"
)

// Root is a handle to one task-root directory. Multiple independent Roots
// may coexist in one process; nothing is ambient or global.
type Root struct {
	dir  string
	opts Options
}

// Init creates a new task-root at dir with the given spec text and options.
// The directory must not already contain a task-root. State starts at
// iteration=0, attempts=0, status=pending.
func Init(dir, specText string, opts Options) (*Root, error) {
	opts.normalize()

	if strings.TrimSpace(specText) == "" {
		return nil, fmt.Errorf("spec text is empty")
	}
	if _, err := os.Stat(filepath.Join(dir, StateFile)); err == nil {
		return nil, fmt.Errorf("task-root already initialized at %s", dir)
	}
	if err := os.MkdirAll(filepath.Join(dir, EvidenceDirName), 0755); err != nil {
		return nil, &PersistenceError{Path: dir, Err: err}
	}

	r := &Root{dir: dir, opts: opts}

	if err := os.WriteFile(r.SpecPath(), []byte(specText), 0644); err != nil {
		return nil, &PersistenceError{Path: r.SpecPath(), Err: err}
	}
	if err := r.writeOptions(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	state := &State{
		Iteration:   0,
		Attempts:    0,
		Status:      StatusPending,
		PromiseText: opts.PromiseText,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.SaveState(state); err != nil {
		return nil, err
	}
	return r, nil
}

// Open returns a handle to an existing task-root, reading its options.
// A missing or malformed config or state record is a ConfigError.
func Open(dir string) (*Root, error) {
	r := &Root{dir: dir}

	data, err := os.ReadFile(r.ConfigPath())
	if err != nil {
		return nil, &ConfigError{Path: r.ConfigPath(), Err: err}
	}
	var opts Options
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return nil, &ConfigError{Path: r.ConfigPath(), Err: err}
	}
	opts.normalize()
	r.opts = opts

	// Fail fast on a missing state record rather than at first use.
	if _, err := os.Stat(r.StatePath()); err != nil {
		return nil, &ConfigError{Path: r.StatePath(), Err: err}
	}
	return r, nil
}

// Dir returns the task-root directory.
func (r *Root) Dir() string { return r.dir }

// Options returns the loop options read at Init/Open time.
func (r *Root) Options() Options { return r.opts }

// SpecPath returns the path of the immutable task spec.
func (r *Root) SpecPath() string { return filepath.Join(r.dir, SpecFile) }

// ConfigPath returns the path of the options file.
func (r *Root) ConfigPath() string { return filepath.Join(r.dir, ConfigFile) }

// StatePath returns the path of the loop state record.
func (r *Root) StatePath() string { return filepath.Join(r.dir, StateFile) }

// ProgressPath returns the path of the append-only progress log.
func (r *Root) ProgressPath() string { return filepath.Join(r.dir, ProgressFile) }

// EvidenceDir returns the directory holding per-iteration evidence records.
func (r *Root) EvidenceDir() string { return filepath.Join(r.dir, EvidenceDirName) }

// BlockReportPath returns the path of the block report artifact.
func (r *Root) BlockReportPath() string { return filepath.Join(r.dir, BlockReportFile) }

// ReadSpec re-reads the task spec from disk. The spec is immutable after
// Init, but every iteration reloads it rather than caching a copy: no
// in-process state is relied on across a suspension point.
func (r *Root) ReadSpec() (string, error) {
	data, err := os.ReadFile(r.SpecPath())
	if err != nil {
		return "", &ConfigError{Path: r.SpecPath(), Err: err}
	}
	spec := strings.TrimSpace(string(data))
	if spec == "" {
		return "", &ConfigError{Path: r.SpecPath(), Err: fmt.Errorf("spec is empty")}
	}
	return spec, nil
}

// writeOptions persists the options file.
func (r *Root) writeOptions() error {
	data, err := yaml.Marshal(r.opts)
	if err != nil {
		return &PersistenceError{Path: r.ConfigPath(), Err: err}
	}
	if err := os.WriteFile(r.ConfigPath(), data, 0644); err != nil {
		return &PersistenceError{Path: r.ConfigPath(), Err: err}
	}
	return nil
}
