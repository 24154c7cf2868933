package taskroot

import "os"

// WriteBlockReport stores the advisory report created on transition to
// blocked. The report is plain markdown for a human operator.
func (r *Root) WriteBlockReport(text string) error {
	if err := os.WriteFile(r.BlockReportPath(), []byte(text), 0644); err != nil {
		return &PersistenceError{Path: r.BlockReportPath(), Err: err}
	}
	return nil
}

// ReadBlockReport returns the report text, or "" if none exists.
func (r *Root) ReadBlockReport() (string, error) {
	data, err := os.ReadFile(r.BlockReportPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", &ConfigError{Path: r.BlockReportPath(), Err: err}
	}
	return string(data), nil
}

// HasBlockReport reports whether a block report is present.
func (r *Root) HasBlockReport() bool {
	_, err := os.Stat(r.BlockReportPath())
	return err == nil
}

// ClearBlockReport removes the report. Missing is not an error: clearing is
// idempotent so reset can always proceed.
func (r *Root) ClearBlockReport() error {
	if err := os.Remove(r.BlockReportPath()); err != nil && !os.IsNotExist(err) {
		return &PersistenceError{Path: r.BlockReportPath(), Err: err}
	}
	return nil
}
