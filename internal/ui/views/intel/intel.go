package intel

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/flyvpn/flyvpn-tui/internal/badges"
	"github.com/flyvpn/flyvpn-tui/internal/controller"
	"github.com/flyvpn/flyvpn-tui/internal/keymap"
	"github.com/flyvpn/flyvpn-tui/internal/progression"
	"github.com/flyvpn/flyvpn-tui/internal/state"
	"github.com/flyvpn/flyvpn-tui/internal/theme"
	"github.com/flyvpn/flyvpn-tui/internal/ui/components/table"
	"github.com/flyvpn/flyvpn-tui/internal/ui/view"
	"github.com/flyvpn/flyvpn-tui/internal/util"
)

var columns = []table.Column{
	{Title: "Kind", Width: 5},
	{Title: "Category", Width: 16},
	{Title: "Signature", Width: 24},
	{Title: "Source", Width: 15},
	{Title: "Origin", Width: 14},
	{Title: "Distance", Width: 10},
	{Title: "Sev", Width: 5},
	{Title: "Seen", Width: 10},
}

// Model lists pending threats and neutralizes them on demand.
type Model struct {
	store   *state.Store
	theme   theme.Theme
	intel   controller.IntelManager
	catalog *badges.Catalog
	now     func() time.Time
	keys    keymap.List
	all     key.Binding

	cursor int
	status string

	width  int
	height int
}

// New builds the intel view. A nil catalog uses the default badge set.
func New(store *state.Store, th theme.Theme, intel controller.IntelManager, catalog *badges.Catalog) view.Model {
	if catalog == nil {
		catalog = badges.Default()
	}
	return &Model{
		store:   store,
		theme:   th,
		intel:   intel,
		catalog: catalog,
		now:     time.Now,
		keys:    keymap.DefaultList(),
		all: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "neutralize all"),
		),
	}
}

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Title() string { return "Intel" }

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
	threats := m.store.Snapshot().Threats
	switch {
	case key.Matches(keyMsg, m.keys.Up):
		m.cursor = util.WrapIndex(m.cursor, -1, len(threats))
	case key.Matches(keyMsg, m.keys.Down):
		m.cursor = util.WrapIndex(m.cursor, 1, len(threats))
	case key.Matches(keyMsg, m.keys.Neutralize):
		if len(threats) > 0 {
			m.neutralize(threats[util.ClampIndex(m.cursor, len(threats))])
		}
	case key.Matches(keyMsg, m.all):
		m.neutralizeAll(threats)
	}
	return m, nil
}

func (m *Model) neutralize(threat state.Threat) {
	if m.intel == nil {
		m.status = m.theme.Danger.Render("Intel controller unavailable")
		return
	}
	res, err := m.intel.NeutralizeThreat(threat.ID)
	if err != nil {
		m.status = m.theme.Danger.Render(fmt.Sprintf("Neutralize failed: %v", err))
		return
	}
	m.status = m.theme.Success.Render(fmt.Sprintf("%s neutralized. %s", threat.Category, m.describe(res)))
}

func (m *Model) neutralizeAll(threats []state.Threat) {
	if m.intel == nil || len(threats) == 0 {
		return
	}
	var (
		last  progression.Result
		fresh []string
		done  int
	)
	for _, threat := range threats {
		res, err := m.intel.NeutralizeThreat(threat.ID)
		if err != nil {
			continue
		}
		done++
		last = res
		fresh = append(fresh, res.NewBadges...)
	}
	last.NewBadges = fresh
	m.status = m.theme.Success.Render(fmt.Sprintf("%d threats neutralized. %s", done, m.describe(last)))
}

func (m *Model) describe(res progression.Result) string {
	parts := []string{fmt.Sprintf("Level %d, %d XP", res.Level, res.XP)}
	if res.LevelUps > 0 {
		parts = append(parts, "LEVEL UP!")
	}
	if len(res.NewBadges) > 0 {
		names := make([]string, 0, len(res.NewBadges))
		for _, id := range res.NewBadges {
			if badge, ok := m.catalog.Lookup(id); ok {
				names = append(names, badge.Name)
			}
		}
		parts = append(parts, "Unlocked: "+strings.Join(names, ", "))
	}
	return strings.Join(parts, " · ")
}

func (m *Model) View() string {
	snap := m.store.Snapshot()
	threats := snap.Threats
	m.cursor = util.ClampIndex(m.cursor, len(threats))

	location := m.theme.Subtle.Render(" location unknown, proximity disabled")
	if loc := snap.User.Location; loc != nil {
		location = m.theme.Subtle.Render(fmt.Sprintf(" location %.2f, %.2f", loc.Lat, loc.Lon))
	}
	lines := []string{
		m.theme.Title.Render(fmt.Sprintf("Threat feed (%d pending)", len(threats))) + location,
		m.theme.Header.Render(table.Header(lipgloss.NewStyle(), columns)),
	}
	if len(threats) == 0 {
		lines = append(lines, m.theme.Subtle.Render("No active threats. All clear."))
	}

	start, end := table.Window(len(threats), m.cursor, max(3, m.height-10))
	for idx := start; idx < end; idx++ {
		lines = append(lines, m.renderRow(threats[idx], idx == m.cursor))
	}
	if len(threats) > 0 {
		lines = append(lines, "", m.renderDetail(threats[m.cursor]))
	}

	lines = append(lines, m.theme.Subtle.Render(keymap.Help(m.keys.Up, m.keys.Down, m.keys.Neutralize, m.all)))
	if m.status != "" {
		lines = append(lines, m.status)
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderRow(threat state.Threat, selected bool) string {
	values := []string{
		string(threat.Kind),
		threat.Category,
		threat.Name,
		util.Fallback(threat.SourceIP, "local"),
		threat.Country,
		distance(threat),
		strings.Repeat("!", threat.Severity),
		util.RelativeTime(threat.CreatedAt, m.now()),
	}
	style := lipgloss.NewStyle()
	switch {
	case selected:
		style = m.theme.Selected
	case threat.Nearby:
		style = m.theme.Danger
	}
	return table.Row(style, columns, values)
}

func (m *Model) renderDetail(threat state.Threat) string {
	proximity := "remote"
	if threat.Nearby {
		proximity = m.theme.Danger.Render("NEARBY")
	}
	lines := []string{
		m.theme.Title.Render(threat.Name),
		fmt.Sprintf("Category %s · %s · severity %d/5", threat.Category, threat.Kind, threat.Severity),
		fmt.Sprintf("Coordinates %.3f, %.3f · %s", threat.Location.Lat, threat.Location.Lon, proximity),
	}
	return m.theme.Card.Copy().Render(strings.Join(lines, "\n"))
}

func distance(threat state.Threat) string {
	if threat.DistanceKM < 0 {
		return "-"
	}
	if threat.DistanceKM < 1 {
		return fmt.Sprintf("%.0f m", threat.DistanceKM*1000)
	}
	return fmt.Sprintf("%.0f km", threat.DistanceKM)
}
