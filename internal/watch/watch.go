// Package watch provides a terminal view that follows a task root as
// a controller works through it, refreshing on filesystem events.
package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"taskloop/internal/loop"
	"taskloop/internal/taskroot"
)

const (
	refreshInterval = 2 * time.Second
	progressTail    = 10
)

// Model is the bubbletea model for the watch view.
type Model struct {
	root    *taskroot.Root
	styles  Styles
	spinner spinner.Model
	watcher *fsnotify.Watcher

	report *loop.StatusReport
	err    error
	width  int
}

var _ tea.Model = (*Model)(nil)

type refreshMsg struct {
	report *loop.StatusReport
	err    error
}

type fsEventMsg struct{}

type tickMsg time.Time

// New creates a watch model for the given task root. The filesystem
// watcher is optional; when it cannot be created the view falls back
// to polling alone.
func New(root *taskroot.Root) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	m := &Model{
		root:    root,
		styles:  DefaultStyles(),
		spinner: sp,
	}
	if w, err := fsnotify.NewWatcher(); err == nil {
		// Watch the directory, not the files: state.json is replaced
		// by rename, which drops per-file watches.
		if err := w.Add(root.Dir()); err == nil {
			m.watcher = w
		} else {
			w.Close()
		}
	}
	return m
}

// Close releases the filesystem watcher.
func (m *Model) Close() {
	if m.watcher != nil {
		m.watcher.Close()
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.refresh(), tick()}
	if m.watcher != nil {
		cmds = append(cmds, waitForEvent(m.watcher))
	}
	return tea.Batch(cmds...)
}

func (m *Model) refresh() tea.Cmd {
	root := m.root
	return func() tea.Msg {
		report, err := loop.Status(root, progressTail)
		return refreshMsg{report: report, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForEvent(w *fsnotify.Watcher) tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return nil
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
					return fsEventMsg{}
				}
			case _, ok := <-w.Errors:
				if !ok {
					return nil
				}
			}
		}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case refreshMsg:
		m.report = msg.report
		m.err = msg.err
	case fsEventMsg:
		return m, tea.Batch(m.refresh(), waitForEvent(m.watcher))
	case tickMsg:
		return m, tea.Batch(m.refresh(), tick())
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("taskloop watch"))
	b.WriteString("  ")
	b.WriteString(m.styles.Muted.Render(m.root.Dir()))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(m.styles.Bad.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n")
		return b.String()
	}
	if m.report == nil {
		b.WriteString(m.spinner.View())
		b.WriteString(" loading\n")
		return b.String()
	}

	st := m.report.State
	statusStr := m.statusStyle(st.Status)(st.Status.String())
	if st.Status == taskroot.StatusRunning {
		statusStr = m.spinner.View() + " " + statusStr
	}
	m.field(&b, "status", statusStr)
	m.field(&b, "iteration", fmt.Sprintf("%d", st.Iteration))
	m.field(&b, "attempts", fmt.Sprintf("%d", st.Attempts))
	m.field(&b, "evidence", fmt.Sprintf("%d", m.report.Evidence))
	if m.report.RunnerPID != 0 {
		m.field(&b, "runner pid", fmt.Sprintf("%d", m.report.RunnerPID))
	}
	if st.PromiseText != "" {
		m.field(&b, "promise", st.PromiseText)
	}
	m.field(&b, "updated", st.UpdatedAt.Format(time.RFC3339))

	if m.report.HasBlock {
		b.WriteString("\n")
		b.WriteString(m.styles.Blocked.Render("blocked"))
		b.WriteString(m.styles.Muted.Render("  see " + m.root.BlockReportPath()))
		b.WriteString("\n")
	}

	if len(m.report.Progress) > 0 {
		b.WriteString("\n")
		b.WriteString(m.styles.Label.Render("recent iterations"))
		b.WriteString("\n")
		for _, entry := range m.report.Progress {
			b.WriteString(m.progressLine(entry))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("q to quit"))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) field(b *strings.Builder, label, value string) {
	b.WriteString(m.styles.Label.Render(fmt.Sprintf("%-12s", label)))
	b.WriteString(value)
	b.WriteString("\n")
}

func (m *Model) statusStyle(s taskroot.Status) func(...string) string {
	var style func(...string) string
	switch s {
	case taskroot.StatusCompleted:
		style = m.styles.Good.Render
	case taskroot.StatusRunning:
		style = m.styles.Warn.Render
	case taskroot.StatusBlocked, taskroot.StatusMaxIterations:
		style = m.styles.Bad.Render
	default:
		style = m.styles.Value.Render
	}
	return style
}

func (m *Model) progressLine(entry taskroot.ProgressEntry) string {
	ts := entry.Timestamp.Format("15:04:05")
	line := fmt.Sprintf("  %s  #%-3d %-10s %s",
		m.styles.Muted.Render(ts), entry.Iteration, entry.Outcome, entry.Summary)
	if m.width > 0 && len(line) > m.width {
		line = line[:m.width]
	}
	return line
}

// Run starts the watch view and blocks until the user quits.
func Run(root *taskroot.Root) error {
	m := New(root)
	defer m.Close()
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
