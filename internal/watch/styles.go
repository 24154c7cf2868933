package watch

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles for the watch view.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Good    lipgloss.Style
	Warn    lipgloss.Style
	Bad     lipgloss.Style
	Muted   lipgloss.Style
	Blocked lipgloss.Style
}

// DefaultStyles returns the default adaptive color styles.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{
			Light: "#399ee6",
			Dark:  "#59c2ff",
		}),
		Label: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
			Light: "#828c99",
			Dark:  "#6c7680",
		}),
		Value: lipgloss.NewStyle(),
		Good: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
			Light: "#86b300",
			Dark:  "#c2d94c",
		}),
		Warn: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
			Light: "#f2ae49",
			Dark:  "#ffb454",
		}),
		Bad: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
			Light: "#f07171",
			Dark:  "#f07178",
		}),
		Muted: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
			Light: "#828c99",
			Dark:  "#6c7680",
		}),
		Blocked: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{
			Light: "#f07171",
			Dark:  "#f07178",
		}),
	}
}
