package tui

import "github.com/charmbracelet/lipgloss"

var (
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	// TitleStyle styles the line above the table.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))

	done    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	active  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	warning = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failed  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	statusStyles = map[string]lipgloss.Style{
		// Terminal states
		"done":      done,
		"rendered":  done,
		"committed": done,
		"published": done,
		"planned":   done,
		"ok":        done,

		// Active states
		"running":    active,
		"narrating":  active,
		"rendering":  active,
		"composing":  active,
		"uploading":  active,
		"processing": active,

		// Skipped / warning
		"skipped":   warning,
		"exhausted": warning,
		"warning":   warning,

		// Error
		"error": failed,

		// Pending
		"pending": lipgloss.NewStyle().Faint(true),
	}

	terminalStatuses = map[string]bool{
		"done": true, "rendered": true, "committed": true, "published": true,
		"planned": true, "skipped": true, "exhausted": true, "error": true,
	}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

func isTerminal(status string) bool {
	return terminalStatuses[status]
}
