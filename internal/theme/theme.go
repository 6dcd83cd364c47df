package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Mode controls the global color palette selection.
type Mode string

const (
	ModeAuto  Mode = "auto"
	ModeDark  Mode = "dark"
	ModeLight Mode = "light"
)

// Modes lists the selectable palettes in settings order.
var Modes = []Mode{ModeAuto, ModeDark, ModeLight}

// Options configure the active theme at runtime.
type Options struct {
	// Override wins over Preferred, typically the -theme flag.
	Override  string
	Preferred string
	// HasDarkBackground resolves ModeAuto; nil asks lipgloss.
	HasDarkBackground func() bool
}

// Theme exposes reusable lipgloss styles for the UI.
type Theme struct {
	Mode        Mode
	Title       lipgloss.Style
	Header      lipgloss.Style
	Footer      lipgloss.Style
	TabActive   lipgloss.Style
	TabInactive lipgloss.Style
	Body        lipgloss.Style
	Card        lipgloss.Style
	Success     lipgloss.Style
	Warning     lipgloss.Style
	Danger      lipgloss.Style
	Subtle      lipgloss.Style
	Accent      lipgloss.Style
	Selected    lipgloss.Style
}

// New constructs a theme based on the provided preferences.
func New(opts Options) Theme {
	mode := selectMode(opts.Override, opts.Preferred, opts.HasDarkBackground)
	if mode == ModeLight {
		return buildLight()
	}
	return buildDark()
}

// Parse returns the mode named by value, or false when it is not recognized.
func Parse(value string) (Mode, bool) {
	mode := parseMode(value)
	return mode, mode != ""
}

// Label renders a mode for settings rows.
func Label(mode Mode) string {
	switch mode {
	case ModeDark:
		return "Dark"
	case ModeLight:
		return "Light"
	default:
		return "Auto"
	}
}

// RenderTab prints a tab label using the appropriate style.
func (t Theme) RenderTab(label string, active bool) string {
	style := t.TabInactive
	if active {
		style = t.TabActive
	}
	return style.Render(label)
}

// StatusStyle picks the style used for a connection status badge.
func (t Theme) StatusStyle(connected, pending bool) lipgloss.Style {
	switch {
	case pending:
		return t.Warning
	case connected:
		return t.Success
	default:
		return t.Danger
	}
}

func selectMode(override, preferred string, dark func() bool) Mode {
	if mode := parseMode(override); mode != "" {
		return applyAuto(mode, dark)
	}
	if mode := parseMode(preferred); mode != "" {
		return applyAuto(mode, dark)
	}
	return ModeDark
}

func parseMode(value string) Mode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(ModeDark):
		return ModeDark
	case string(ModeLight):
		return ModeLight
	case string(ModeAuto):
		return ModeAuto
	default:
		return ""
	}
}

func applyAuto(mode Mode, dark func() bool) Mode {
	if mode != ModeAuto {
		return mode
	}
	if dark == nil {
		dark = lipgloss.HasDarkBackground
	}
	if dark() {
		return ModeDark
	}
	return ModeLight
}

func buildDark() Theme {
	bg := lipgloss.Color("#0b1020")
	fg := lipgloss.Color("#e2e8f0")
	primary := lipgloss.Color("#67e8f9")
	accent := lipgloss.Color("#a78bfa")
	subtle := lipgloss.Color("#64748b")

	body := lipgloss.NewStyle().Foreground(fg).Background(bg).Padding(1, 2)

	return Theme{
		Mode:        ModeDark,
		Title:       lipgloss.NewStyle().Foreground(primary).Bold(true).PaddingRight(1),
		Header:      lipgloss.NewStyle().Foreground(primary).Background(bg).Padding(0, 1),
		Footer:      lipgloss.NewStyle().Foreground(subtle).Background(bg).Padding(0, 1),
		TabActive:   lipgloss.NewStyle().Foreground(bg).Background(primary).Padding(0, 2).Bold(true),
		TabInactive: lipgloss.NewStyle().Foreground(primary).Background(bg).Padding(0, 2),
		Body:        body,
		Card:        body.Copy().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(primary).Padding(0, 1).MarginRight(1),
		Success:     lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80")).Bold(true),
		Warning:     lipgloss.NewStyle().Foreground(lipgloss.Color("#facc15")).Bold(true),
		Danger:      lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171")).Bold(true),
		Subtle:      lipgloss.NewStyle().Foreground(subtle),
		Accent:      lipgloss.NewStyle().Foreground(accent),
		Selected:    lipgloss.NewStyle().Foreground(bg).Background(accent).Bold(true),
	}
}

func buildLight() Theme {
	bg := lipgloss.Color("#f8fafc")
	fg := lipgloss.Color("#0f172a")
	primary := lipgloss.Color("#0e7490")
	accent := lipgloss.Color("#7c3aed")
	subtle := lipgloss.Color("#64748b")

	body := lipgloss.NewStyle().Foreground(fg).Background(bg).Padding(1, 2)

	return Theme{
		Mode:        ModeLight,
		Title:       lipgloss.NewStyle().Foreground(primary).Bold(true).PaddingRight(1),
		Header:      lipgloss.NewStyle().Foreground(primary).Background(bg).Padding(0, 1),
		Footer:      lipgloss.NewStyle().Foreground(subtle).Background(bg).Padding(0, 1),
		TabActive:   lipgloss.NewStyle().Foreground(bg).Background(primary).Padding(0, 2).Bold(true),
		TabInactive: lipgloss.NewStyle().Foreground(primary).Background(bg).Padding(0, 2),
		Body:        body,
		Card:        body.Copy().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(primary).Padding(0, 1).MarginRight(1),
		Success:     lipgloss.NewStyle().Foreground(lipgloss.Color("#15803d")).Bold(true),
		Warning:     lipgloss.NewStyle().Foreground(lipgloss.Color("#b45309")).Bold(true),
		Danger:      lipgloss.NewStyle().Foreground(lipgloss.Color("#b91c1c")).Bold(true),
		Subtle:      lipgloss.NewStyle().Foreground(subtle),
		Accent:      lipgloss.NewStyle().Foreground(accent),
		Selected:    lipgloss.NewStyle().Foreground(bg).Background(accent).Bold(true),
	}
}
