package profile

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/flyvpn/flyvpn-tui/internal/badges"
	"github.com/flyvpn/flyvpn-tui/internal/keymap"
	"github.com/flyvpn/flyvpn-tui/internal/state"
	"github.com/flyvpn/flyvpn-tui/internal/theme"
	"github.com/flyvpn/flyvpn-tui/internal/ui/components/table"
	"github.com/flyvpn/flyvpn-tui/internal/ui/view"
	"github.com/flyvpn/flyvpn-tui/internal/ui/widget"
	"github.com/flyvpn/flyvpn-tui/internal/util"
)

const cellWidth = 24

// Model shows level progress, per-category counters and the badge grid.
type Model struct {
	store   *state.Store
	theme   theme.Theme
	catalog *badges.Catalog

	cursor       int
	unlockedOnly bool
	filter       key.Binding

	width  int
	height int
}

// New builds the profile view. A nil catalog falls back to badges.Default.
func New(store *state.Store, th theme.Theme, catalog *badges.Catalog) view.Model {
	if catalog == nil {
		catalog = badges.Default()
	}
	return &Model{
		store:   store,
		theme:   th,
		catalog: catalog,
		filter: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "unlocked only"),
		),
	}
}

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Title() string { return "Profile" }

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) SetTheme(th theme.Theme) { m.theme = th }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	total := len(m.visibleBadges(m.unlockedSet()))
	cols := m.columns()
	switch keyMsg.String() {
	case "right", "l":
		m.cursor = util.ClampIndex(m.cursor+1, total)
	case "left", "h":
		m.cursor = util.ClampIndex(m.cursor-1, total)
	case "down", "j":
		if m.cursor+cols < total {
			m.cursor += cols
		}
	case "up", "k":
		if m.cursor-cols >= 0 {
			m.cursor -= cols
		}
	default:
		if key.Matches(keyMsg, m.filter) {
			m.unlockedOnly = !m.unlockedOnly
			m.cursor = 0
		}
	}
	return m, nil
}

func (m *Model) unlockedSet() map[string]bool {
	ids := m.store.Snapshot().Progression.UnlockedBadges
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func (m *Model) visibleBadges(unlocked map[string]bool) []badges.Badge {
	all := m.catalog.All()
	if !m.unlockedOnly {
		return all
	}
	out := make([]badges.Badge, 0, len(unlocked))
	for _, b := range all {
		if unlocked[b.ID] {
			out = append(out, b)
		}
	}
	return out
}

func (m *Model) columns() int {
	return max(1, (m.width-2)/cellWidth)
}

func (m *Model) View() string {
	if m.width == 0 {
		return ""
	}
	snap := m.store.Snapshot()
	unlocked := m.unlockedSet()
	visible := m.visibleBadges(unlocked)
	m.cursor = util.ClampIndex(m.cursor, len(visible))

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderLevel(snap.Progression, len(unlocked)),
		m.renderCategories(snap.Progression.Stats),
	)
	sections := []string{top, m.renderDetail(visible, unlocked)}

	used := lipgloss.Height(top) + 3
	sections = append(sections, m.renderGrid(visible, unlocked, max(1, m.height-used-2)))
	sections = append(sections, m.theme.Subtle.Render("←/→/↑/↓ browse · "+keymap.Help(m.filter)))

	return m.theme.Body.Copy().Width(m.width).Height(max(3, m.height)).Render(strings.Join(sections, "\n"))
}

func (m *Model) renderLevel(p state.Progression, unlocked int) string {
	need := state.XPForNextLevel(p.Level)
	lines := []string{
		m.theme.Title.Render("Operator"),
		m.theme.Accent.Render(fmt.Sprintf("Level %d", p.Level)),
		fmt.Sprintf("%s %d/%d XP", widget.Bar(p.XP, need, 16), p.XP, need),
		fmt.Sprintf("Neutralized %d", p.Stats.TotalNeutralized),
		fmt.Sprintf("Badges %d/%d", unlocked, m.catalog.Len()),
	}
	return m.theme.Card.Copy().Width(36).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderCategories(stats state.Stats) string {
	names := stats.SortedCategories()
	most := 0
	for _, name := range names {
		most = max(most, stats.Count(name))
	}
	lines := []string{m.theme.Title.Render("By category")}
	for _, name := range names {
		count := stats.Count(name)
		lines = append(lines, fmt.Sprintf("%-9s %s %d", name, widget.Bar(count, most, 12), count))
	}
	return m.theme.Card.Copy().Width(36).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderDetail(visible []badges.Badge, unlocked map[string]bool) string {
	if len(visible) == 0 {
		return m.theme.Subtle.Render("No badges unlocked yet. Neutralize a threat to earn your first.")
	}
	b := visible[m.cursor]
	status := m.theme.Subtle.Render("locked")
	if unlocked[b.ID] {
		status = m.theme.Success.Render("unlocked")
	}
	name := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(b.ColorHex())).Render(b.Icon.Glyph() + " " + b.Name)
	return fmt.Sprintf("%s  %s  %s", name, status, m.theme.Subtle.Render(b.Description))
}

func (m *Model) renderGrid(visible []badges.Badge, unlocked map[string]bool, height int) string {
	cols := m.columns()
	var rows []string
	for start := 0; start < len(visible); start += cols {
		end := min(start+cols, len(visible))
		cells := make([]string, 0, cols)
		for idx := start; idx < end; idx++ {
			cells = append(cells, m.renderCell(visible[idx], unlocked[visible[idx].ID], idx == m.cursor))
		}
		rows = append(rows, strings.Join(cells, ""))
	}
	if len(rows) == 0 {
		return ""
	}
	from, to := table.Window(len(rows), m.cursor/cols, height)
	return strings.Join(rows[from:to], "\n")
}

func (m *Model) renderCell(b badges.Badge, unlocked, selected bool) string {
	glyph := m.theme.Subtle.Render("·")
	name := m.theme.Subtle.Render(util.TruncateString(b.Name, cellWidth-4))
	if unlocked {
		glyph = lipgloss.NewStyle().Foreground(lipgloss.Color(b.ColorHex())).Render(b.Icon.Glyph())
		name = util.TruncateString(b.Name, cellWidth-4)
	}
	cell := util.PadString(fmt.Sprintf("%s %s", glyph, name), cellWidth-2)
	if selected {
		return m.theme.Selected.Render(">" + cell + " ")
	}
	return " " + cell + " "
}
