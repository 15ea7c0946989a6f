package tui

import "github.com/charmbracelet/lipgloss"

// styles groups the lipgloss styles used by View.
type styles struct {
	Title    lipgloss.Style
	Selected lipgloss.Style
	Item     lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Label    lipgloss.Style
	Help     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Title:    lipgloss.NewStyle().Foreground(lipgloss.Color("#0077B6")).Bold(true).MarginBottom(1),
		Selected: lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true),
		Item:     lipgloss.NewStyle().PaddingLeft(2),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F56")).Bold(true),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")),
		Label:    lipgloss.NewStyle().Width(14),
		Help:     lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).MarginTop(1),
	}
}
