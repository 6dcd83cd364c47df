package root

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/flyvpn/flyvpn-tui/internal/badges"
	"github.com/flyvpn/flyvpn-tui/internal/controller"
	"github.com/flyvpn/flyvpn-tui/internal/keymap"
	"github.com/flyvpn/flyvpn-tui/internal/state"
	"github.com/flyvpn/flyvpn-tui/internal/theme"
	"github.com/flyvpn/flyvpn-tui/internal/ui/view"
	"github.com/flyvpn/flyvpn-tui/internal/ui/views/dashboard"
	"github.com/flyvpn/flyvpn-tui/internal/ui/views/intel"
	"github.com/flyvpn/flyvpn-tui/internal/ui/views/logs"
	"github.com/flyvpn/flyvpn-tui/internal/ui/views/profile"
	"github.com/flyvpn/flyvpn-tui/internal/ui/views/servers"
	settingsview "github.com/flyvpn/flyvpn-tui/internal/ui/views/settings"
)

// Options controls how the root model is assembled.
type Options struct {
	Context context.Context
	Theme   theme.Theme
	// ThemePreference is the persisted palette name, possibly "auto".
	ThemePreference   string
	HasDarkBackground func() bool
	KeyMap            *keymap.Global

	Connection controller.ConnectionManager
	Config     controller.ConfigManager
	Logs       controller.LogManager
	Intel      controller.IntelManager
	Pool       controller.PoolManager
	Settings   controller.SettingsManager
	Catalog    *badges.Catalog
	ExportDir  string
}

// editor is implemented by views that capture raw keystrokes while editing.
type editor interface {
	Editing() bool
}

// Model orchestrates routed Bubble Tea views and global UI chrome.
type Model struct {
	store    *state.Store
	sub      *state.Subscription
	keymap   keymap.Global
	theme    theme.Theme
	darkBg   func() bool
	dash     *dashboard.Model
	showHelp bool

	views  map[state.ViewKind]view.Model
	order  []state.ViewKind
	active state.ViewKind

	width  int
	height int
}

// New builds the root Bubble Tea model.
func New(store *state.Store, opts Options) *Model {
	keyMap := keymap.DefaultGlobal()
	if opts.KeyMap != nil {
		keyMap = *opts.KeyMap
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	dash := dashboard.New(ctx, store, opts.Theme, opts.Connection, opts.Config).(*dashboard.Model)
	views := map[state.ViewKind]view.Model{
		state.ViewDashboard: dash,
		state.ViewServers:   servers.New(ctx, store, opts.Theme, opts.Connection, opts.Pool),
		state.ViewIntel:     intel.New(store, opts.Theme, opts.Intel, opts.Catalog),
		state.ViewLogs:      logs.New(store, opts.Theme, opts.Logs, opts.ExportDir),
		state.ViewSettings:  settingsview.New(store, opts.Theme, opts.Config, opts.Settings, opts.ThemePreference),
		state.ViewProfile:   profile.New(store, opts.Theme, opts.Catalog),
	}

	active := state.ViewDashboard
	if store != nil {
		if kind := store.ActiveView(); views[kind] != nil {
			active = kind
		}
	}
	model := &Model{
		store:  store,
		keymap: keyMap,
		theme:  opts.Theme,
		darkBg: opts.HasDarkBackground,
		dash:   dash,
		views:  views,
		order:  append([]state.ViewKind{}, state.DefaultViewOrder...),
		active: active,
	}
	if store != nil {
		model.sub = store.Subscribe()
	}
	return model
}

type storeChangeMsg struct{}

func (m *Model) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.views)+1)
	for _, v := range m.views {
		cmds = append(cmds, v.Init())
	}
	cmds = append(cmds, waitForStoreChanges(m.sub))
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case storeChangeMsg:
		return m, waitForStoreChanges(m.sub)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for _, v := range m.views {
			v.SetSize(msg.Width, max(1, msg.Height-2))
		}
		return m, nil
	case view.ThemeChangedMsg:
		m.applyTheme(msg.Mode)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keymap.Quit) {
			m.closeSubscription()
			return m, tea.Quit
		}
		if ed, ok := m.activeView().(editor); ok && ed.Editing() {
			break
		}
		switch {
		case key.Matches(msg, m.keymap.NextView):
			m.cycle(1)
			return m, nil
		case key.Matches(msg, m.keymap.PrevView):
			m.cycle(-1)
			return m, nil
		case key.Matches(msg, m.keymap.Connect):
			return m, m.dash.StartToggle()
		case key.Matches(msg, m.keymap.Help):
			m.showHelp = !m.showHelp
			return m, nil
		}

	case tea.QuitMsg:
		m.closeSubscription()
	}

	// async results and spinner ticks reach their view even when it is not on screen
	if _, isKey := msg.(tea.KeyMsg); !isKey {
		cmds := make([]tea.Cmd, 0, len(m.views))
		for _, kind := range m.order {
			if v := m.views[kind]; v != nil {
				_, cmd := v.Update(msg)
				cmds = append(cmds, cmd)
			}
		}
		return m, tea.Batch(cmds...)
	}

	updated, cmd := m.activeView().Update(msg)
	if nextView, ok := updated.(view.Model); ok {
		m.views[m.active] = nextView
	}
	return m, cmd
}

func (m *Model) applyTheme(mode string) {
	m.theme = theme.New(theme.Options{Preferred: mode, HasDarkBackground: m.darkBg})
	for _, v := range m.views {
		v.SetTheme(m.theme)
	}
}

func (m *Model) View() string {
	activeView := m.activeView()
	if activeView == nil {
		return ""
	}

	headline := lipgloss.JoinHorizontal(lipgloss.Top,
		m.theme.Title.Render("FlyVPN"),
		lipgloss.NewStyle().Padding(0, 1).Render(m.renderTabs()),
	)

	body := activeView.View()
	if m.showHelp {
		body = m.renderHelp()
	}
	footer := m.theme.Footer.Render(m.footerLine(m.store.Snapshot()))

	return lipgloss.JoinVertical(lipgloss.Left, headline, body, footer)
}

func (m *Model) activeView() view.Model {
	return m.views[m.active]
}

func (m *Model) cycle(delta int) {
	if len(m.order) == 0 {
		return
	}
	idx := indexOf(m.order, m.active)
	idx = (idx + delta) % len(m.order)
	if idx < 0 {
		idx += len(m.order)
	}
	m.active = m.order[idx]
	m.showHelp = false
	m.store.SetActiveView(m.active)
}

func (m *Model) closeSubscription() {
	if m.sub != nil {
		m.sub.Close()
		m.sub = nil
	}
}

func (m *Model) renderTabs() string {
	labels := make([]string, 0, len(m.order))
	for _, kind := range m.order {
		view := m.views[kind]
		if view == nil {
			continue
		}
		labels = append(labels, m.theme.RenderTab(view.Title(), kind == m.active))
	}
	return strings.Join(labels, " ")
}

func (m *Model) renderHelp() string {
	rows := []string{m.theme.Title.Render("Keys")}
	for _, b := range []key.Binding{m.keymap.NextView, m.keymap.PrevView, m.keymap.Connect, m.keymap.Help, m.keymap.Quit} {
		h := b.Help()
		rows = append(rows, fmt.Sprintf("%-10s %s", h.Key, h.Desc))
	}
	return m.theme.Body.Copy().Width(max(20, m.width)).Height(max(3, m.height-2)).Render(strings.Join(rows, "\n"))
}

func (m *Model) footerLine(snapshot state.Snapshot) string {
	status := m.theme.StatusStyle(snapshot.Status == state.StatusConnected, snapshot.Status == state.StatusConnecting).
		Render(string(snapshot.Status))
	parts := []string{status}
	if snapshot.Busy {
		parts = append(parts, m.theme.Warning.Render("busy"))
	}
	if !snapshot.CurrentServer.IsZero() {
		parts = append(parts, snapshot.CurrentServer.ID)
	}
	for _, gain := range snapshot.XPGains {
		parts = append(parts, m.theme.Accent.Render(fmt.Sprintf("+%d XP", gain.Amount)))
	}
	parts = append(parts, m.keymap.ShortHelp())
	if snapshot.LastError != "" {
		parts = append(parts, m.theme.Danger.Render(snapshot.LastError))
	}
	return strings.Join(parts, " · ")
}

func indexOf(values []state.ViewKind, target state.ViewKind) int {
	for idx, value := range values {
		if value == target {
			return idx
		}
	}
	return 0
}

func waitForStoreChanges(sub *state.Subscription) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-sub.Events(); !ok {
			return nil
		}
		return storeChangeMsg{}
	}
}
