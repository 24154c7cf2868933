package taskroot

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"time"

	"taskloop/internal/jsonutil"
)

// ProgressEntry is one line of the append-only progress log: a short record
// of a single iteration transition.
type ProgressEntry struct {
	Iteration int       `json:"iteration"`
	Timestamp time.Time `json:"timestamp"`
	Outcome   string    `json:"outcome"`
	Summary   string    `json:"summary"`
}

// AppendProgress appends one entry to the progress log. Entries are written
// as single JSONL lines in one write call, so concurrent external readers
// never observe a torn or reordered record.
func (r *Root) AppendProgress(e ProgressEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	line, err := json.Marshal(e)
	if err != nil {
		return &PersistenceError{Path: r.ProgressPath(), Err: err}
	}
	line = append(line, '\n')

	f, err := os.OpenFile(r.ProgressPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return &PersistenceError{Path: r.ProgressPath(), Err: err}
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return &PersistenceError{Path: r.ProgressPath(), Err: err}
	}
	if err := f.Sync(); err != nil {
		return &PersistenceError{Path: r.ProgressPath(), Err: err}
	}
	return nil
}

// ReadProgress returns all progress entries in log order. A missing log
// yields an empty slice. Unparseable lines are skipped so a tail written
// concurrently with a read never fails the whole scan.
func (r *Root) ReadProgress() ([]ProgressEntry, error) {
	f, err := os.Open(r.ProgressPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &ConfigError{Path: r.ProgressPath(), Err: err}
	}
	defer f.Close()

	var entries []ProgressEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e ProgressEntry
		if jsonutil.UnmarshalLine(line, &e) != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ConfigError{Path: r.ProgressPath(), Err: err}
	}
	return entries, nil
}

// TailProgress returns the last n progress entries in log order.
func (r *Root) TailProgress(n int) ([]ProgressEntry, error) {
	entries, err := r.ReadProgress()
	if err != nil {
		return nil, err
	}
	if n <= 0 || len(entries) <= n {
		return entries, nil
	}
	return entries[len(entries)-n:], nil
}
