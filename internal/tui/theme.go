package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/cragr/snow-incident-console/internal/models"
)

// Theme defines the color palette of the console. All colors use
// lipgloss ANSI 256-color codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Priority colors (indexed 0-4: critical, high, moderate, low, planning).
	PriorityColors [5]lipgloss.Color

	StateNew        lipgloss.Color
	StateInProgress lipgloss.Color
	StateOnHold     lipgloss.Color
	StateResolved   lipgloss.Color
	StateClosed     lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	ErrorText        lipgloss.Color
}

// PriorityColor returns the color for a priority (1-5). Unknown
// priorities return FaintText.
func (theme Theme) PriorityColor(priority int) lipgloss.Color {
	if priority < 1 || priority > len(theme.PriorityColors) {
		return theme.FaintText
	}
	return theme.PriorityColors[priority-1]
}

// StateColor returns the color for a state label.
func (theme Theme) StateColor(state string) lipgloss.Color {
	switch state {
	case models.StateNew:
		return theme.StateNew
	case models.StateInProgress:
		return theme.StateInProgress
	case models.StateOnHold:
		return theme.StateOnHold
	case models.StateResolved:
		return theme.StateResolved
	case models.StateClosed:
		return theme.StateClosed
	default:
		return theme.FaintText
	}
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	PriorityColors: [5]lipgloss.Color{
		lipgloss.Color("196"), // 1 critical: bright red
		lipgloss.Color("208"), // 2 high: orange
		lipgloss.Color("75"),  // 3 moderate: blue
		lipgloss.Color("245"), // 4 low: gray
		lipgloss.Color("240"), // 5 planning: dim gray
	},

	StateNew:        lipgloss.Color("114"), // green
	StateInProgress: lipgloss.Color("220"), // amber
	StateOnHold:     lipgloss.Color("141"), // light purple
	StateResolved:   lipgloss.Color("75"),  // blue
	StateClosed:     lipgloss.Color("245"), // gray

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
	ErrorText:        lipgloss.Color("203"),
}
