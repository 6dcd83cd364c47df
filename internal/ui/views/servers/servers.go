package servers

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/flyvpn/flyvpn-tui/internal/controller"
	"github.com/flyvpn/flyvpn-tui/internal/keymap"
	"github.com/flyvpn/flyvpn-tui/internal/state"
	"github.com/flyvpn/flyvpn-tui/internal/theme"
	"github.com/flyvpn/flyvpn-tui/internal/ui/components/table"
	"github.com/flyvpn/flyvpn-tui/internal/ui/view"
	"github.com/flyvpn/flyvpn-tui/internal/util"
)

var columns = []table.Column{
	{Title: "", Width: 2},
	{Title: "City", Width: 22},
	{Title: "Country", Width: 16},
	{Title: "Latency", Width: 8},
	{Title: "Load", Width: 5},
	{Title: "Address", Width: 16},
	{Title: "Source", Width: 18},
}

// Model lists the server pool and switches the current server.
type Model struct {
	ctx   context.Context
	store *state.Store
	theme theme.Theme
	conn  controller.ConnectionManager
	pool  controller.PoolManager
	keys  keymap.List

	cursor     int
	refreshing bool
	status     string

	width  int
	height int
}

type selectDoneMsg struct {
	id  string
	err error
}

type refreshDoneMsg struct{ count int }

// New builds the servers view.
func New(ctx context.Context, store *state.Store, th theme.Theme, conn controller.ConnectionManager, pool controller.PoolManager) view.Model {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Model{ctx: ctx, store: store, theme: th, conn: conn, pool: pool, keys: keymap.DefaultList()}
}

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Title() string { return "Servers" }

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) SetTheme(th theme.Theme) { m.theme = th }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		pool := m.store.Servers()
		switch {
		case key.Matches(msg, m.keys.Up):
			m.cursor = util.WrapIndex(m.cursor, -1, len(pool))
		case key.Matches(msg, m.keys.Down):
			m.cursor = util.WrapIndex(m.cursor, 1, len(pool))
		case key.Matches(msg, m.keys.Select):
			return m, m.selectCursor(pool)
		case key.Matches(msg, m.keys.Refresh):
			return m, m.refresh()
		}
	case selectDoneMsg:
		if msg.err != nil {
			m.status = m.theme.Danger.Render(fmt.Sprintf("Switch failed: %v", msg.err))
			m.store.SetError(msg.err.Error())
			return m, nil
		}
		m.status = m.theme.Success.Render("Switched to " + msg.id)
		m.store.SetError("")
	case refreshDoneMsg:
		m.refreshing = false
		m.status = m.theme.Success.Render(fmt.Sprintf("Pool refreshed: %d servers", msg.count))
	}
	return m, nil
}

func (m *Model) selectCursor(pool []state.Server) tea.Cmd {
	if len(pool) == 0 || m.conn == nil {
		return nil
	}
	target := pool[util.ClampIndex(m.cursor, len(pool))]
	if m.store.Snapshot().Busy {
		m.status = m.theme.Warning.Render("Another connection operation is in progress")
		return nil
	}
	m.status = m.theme.Subtle.Render("Switching to " + util.ServerName(target) + "...")
	ctx, conn := m.ctx, m.conn
	return func() tea.Msg {
		return selectDoneMsg{id: target.ID, err: conn.SelectServerByID(ctx, target.ID)}
	}
}

func (m *Model) refresh() tea.Cmd {
	if m.pool == nil || m.refreshing {
		return nil
	}
	m.refreshing = true
	m.status = m.theme.Subtle.Render("Refreshing server pool...")
	ctx, pool, store := m.ctx, m.pool, m.store
	return func() tea.Msg {
		return refreshDoneMsg{count: len(pool.Refresh(ctx, store))}
	}
}

func (m *Model) View() string {
	snap := m.store.Snapshot()
	pool := snap.Servers
	m.cursor = util.ClampIndex(m.cursor, len(pool))

	lines := []string{
		m.theme.Title.Render("Server pool") + m.theme.Subtle.Render(summary(pool)),
		m.theme.Header.Render(table.Header(lipgloss.NewStyle(), columns)),
	}
	if len(pool) == 0 {
		lines = append(lines, m.theme.Subtle.Render("No servers available"))
	}

	rows := max(3, m.height-6)
	start, end := table.Window(len(pool), m.cursor, rows)
	for idx := start; idx < end; idx++ {
		lines = append(lines, m.renderRow(pool[idx], idx == m.cursor, pool[idx].ID == snap.CurrentServer.ID))
	}
	if end < len(pool) {
		lines = append(lines, table.RenderCaretRow(table.ComputeMaxWidth(lines[1:2]), m.theme.Subtle))
	}

	lines = append(lines, m.theme.Subtle.Render(keymap.Help(m.keys.Up, m.keys.Down, m.keys.Select, m.keys.Refresh)))
	if m.status != "" {
		lines = append(lines, m.status)
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderRow(srv state.Server, selected, current bool) string {
	marker := ""
	if current {
		marker = "●"
	}
	city := srv.City
	if srv.Tier == state.TierOptimized {
		city += " ★"
	}
	values := []string{marker, city, srv.Country, util.Latency(srv), util.Load(srv), srv.Address, string(srv.Origin)}
	style := lipgloss.NewStyle()
	switch {
	case selected:
		style = m.theme.Selected
	case current:
		style = m.theme.Success
	}
	return table.Row(style, columns, values)
}

func summary(pool []state.Server) string {
	counts := map[state.ServerOrigin]int{}
	for _, srv := range pool {
		counts[srv.Origin]++
	}
	parts := []string{fmt.Sprintf(" %d servers", len(pool))}
	for _, origin := range []state.ServerOrigin{state.OriginPrimary, state.OriginPublicGateway, state.OriginAnonymityNetwork} {
		if n := counts[origin]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", origin, n))
		}
	}
	return strings.Join(parts, " · ")
}
