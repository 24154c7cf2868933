package taskroot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"taskloop/internal/jsonutil"
)

// EvidenceRecord is the immutable captured output of one worker invocation,
// keyed by iteration number. Iteration N's record is never overwritten by
// iteration N+1's.
type EvidenceRecord struct {
	Iteration   int           `json:"iteration"`
	Output      string        `json:"output"`
	Disposition string        `json:"disposition"`
	ExitCode    int           `json:"exit_code"`
	Duration    time.Duration `json:"duration_ns"`
	RecordedAt  time.Time     `json:"recorded_at"`
}

// evidencePath returns the archive path for an iteration's record.
func (r *Root) evidencePath(iteration int) string {
	return filepath.Join(r.EvidenceDir(), fmt.Sprintf("iteration-%04d.json", iteration))
}

// WriteEvidence durably stores the record for its iteration. Writing a
// record for an iteration that already has one returns ErrEvidenceExists.
func (r *Root) WriteEvidence(rec EvidenceRecord) error {
	if rec.Iteration <= 0 {
		return &PersistenceError{
			Path: r.EvidenceDir(),
			Err:  fmt.Errorf("evidence iteration must be positive, got %d", rec.Iteration),
		}
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return &PersistenceError{Path: r.evidencePath(rec.Iteration), Err: err}
	}

	path := r.evidencePath(rec.Iteration)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %d", ErrEvidenceExists, rec.Iteration)
		}
		return &PersistenceError{Path: path, Err: err}
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	if err := f.Sync(); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	return nil
}

// ReadEvidence loads the record for one iteration.
func (r *Root) ReadEvidence(iteration int) (*EvidenceRecord, error) {
	data, err := os.ReadFile(r.evidencePath(iteration))
	if err != nil {
		return nil, &ConfigError{Path: r.evidencePath(iteration), Err: err}
	}
	var rec EvidenceRecord
	if err := jsonutil.UnmarshalWithContext(data, &rec, "parsing evidence record"); err != nil {
		return nil, &ConfigError{Path: r.evidencePath(iteration), Err: err}
	}
	return &rec, nil
}

// EvidenceIterations returns the sorted iteration numbers present in the archive.
func (r *Root) EvidenceIterations() ([]int, error) {
	entries, err := os.ReadDir(r.EvidenceDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &ConfigError{Path: r.EvidenceDir(), Err: err}
	}

	var iters []int
	for _, entry := range entries {
		var n int
		if _, err := fmt.Sscanf(entry.Name(), "iteration-%04d.json", &n); err == nil {
			iters = append(iters, n)
		}
	}
	sort.Ints(iters)
	return iters, nil
}

// CountEvidence returns the number of records in the archive.
func (r *Root) CountEvidence() (int, error) {
	iters, err := r.EvidenceIterations()
	if err != nil {
		return 0, err
	}
	return len(iters), nil
}

// LastEvidence returns up to n of the most recent records, oldest first.
func (r *Root) LastEvidence(n int) ([]*EvidenceRecord, error) {
	iters, err := r.EvidenceIterations()
	if err != nil {
		return nil, err
	}
	if len(iters) > n {
		iters = iters[len(iters)-n:]
	}

	records := make([]*EvidenceRecord, 0, len(iters))
	for _, iter := range iters {
		rec, err := r.ReadEvidence(iter)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
