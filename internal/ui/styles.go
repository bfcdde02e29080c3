// Package ui provides terminal output styling for tectl.
//
// All user-facing console output goes through this package; structured debug
// logging stays on charmbracelet/log.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette.
var (
	Green   = lipgloss.Color("#22C55E")
	Red     = lipgloss.Color("#EF4444")
	Amber   = lipgloss.Color("#F59E0B")
	Cyan    = lipgloss.Color("#06B6D4")
	DimGray = lipgloss.Color("#9CA3AF")
)

// Text styles.
var (
	// SuccessStyle for success messages
	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green).
			Bold(true)

	// ErrorStyle for error messages
	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	// WarningStyle for warning messages
	WarningStyle = lipgloss.NewStyle().
			Foreground(Amber)

	// InfoStyle for informational messages
	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5E7EB"))

	// DimStyle for less important text
	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	// PathStyle for file paths and commands
	PathStyle = lipgloss.NewStyle().
			Foreground(Cyan)

	// TableHeaderStyle for status table headers
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(DimGray)
)

// StatusStyle returns the style for rendering a task status string.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "running":
		return PathStyle
	case "completed":
		return SuccessStyle
	case "failed", "killed":
		return ErrorStyle
	default:
		return WarningStyle
	}
}
