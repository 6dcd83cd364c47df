package view

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/flyvpn/flyvpn-tui/internal/theme"
)

// Model represents a routed Bubble Tea view.
type Model interface {
	tea.Model
	SetSize(width, height int)
	SetTheme(theme theme.Theme)
	Title() string
}

// ThemeChangedMsg asks the root model to rebuild and broadcast the palette.
type ThemeChangedMsg struct {
	Mode string
}

// ThemeChanged wraps a persisted theme name as a command.
func ThemeChanged(mode string) tea.Cmd {
	return func() tea.Msg { return ThemeChangedMsg{Mode: mode} }
}
