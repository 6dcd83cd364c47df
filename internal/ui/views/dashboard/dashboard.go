package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/flyvpn/flyvpn-tui/internal/controller"
	"github.com/flyvpn/flyvpn-tui/internal/keymap"
	"github.com/flyvpn/flyvpn-tui/internal/state"
	"github.com/flyvpn/flyvpn-tui/internal/theme"
	"github.com/flyvpn/flyvpn-tui/internal/ui/view"
	"github.com/flyvpn/flyvpn-tui/internal/ui/widget"
	"github.com/flyvpn/flyvpn-tui/internal/util"
)

var connectingMessages = []string{
	"Negotiating handshake",
	"Exchanging session keys",
	"Allocating virtual address",
	"Hardening the tunnel",
}

// spinner frames per connecting message
const ticksPerMessage = 20

// Model renders the connection summary and drives the connect button.
type Model struct {
	ctx    context.Context
	store  *state.Store
	theme  theme.Theme
	conn   controller.ConnectionManager
	config controller.ConfigManager

	toggle   key.Binding
	protocol key.Binding
	spinner  spinner.Model
	spinning bool
	ticks    int

	width  int
	height int
}

type toggleDoneMsg struct{ err error }

// New creates a dashboard view backed by the provided store.
func New(ctx context.Context, store *state.Store, th theme.Theme, conn controller.ConnectionManager, cfg controller.ConfigManager) view.Model {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Model{
		ctx:    ctx,
		store:  store,
		theme:  th,
		conn:   conn,
		config: cfg,
		toggle: key.NewBinding(
			key.WithKeys("enter", "c"),
			key.WithHelp("enter", "connect/disconnect"),
		),
		protocol: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "cycle protocol"),
		),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

// Init satisfies tea.Model.
func (m *Model) Init() tea.Cmd { return nil }

// Update satisfies tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.toggle):
			return m, m.StartToggle()
		case key.Matches(msg, m.protocol):
			m.cycleProtocol()
		}
	case toggleDoneMsg:
		if msg.err != nil {
			m.store.SetError(msg.err.Error())
		} else {
			m.store.SetError("")
		}
	case spinner.TickMsg:
		if !m.store.Snapshot().Busy {
			m.spinning = false
			m.ticks = 0
			return m, nil
		}
		m.ticks++
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// StartToggle returns the command that connects or disconnects. It is nil
// while another operation is in flight.
func (m *Model) StartToggle() tea.Cmd {
	if m.conn == nil {
		m.store.SetError("connection controller unavailable")
		return nil
	}
	if m.store.Snapshot().Busy {
		return nil
	}
	ctx, conn := m.ctx, m.conn
	run := func() tea.Msg { return toggleDoneMsg{err: conn.Toggle(ctx)} }
	if m.spinning {
		return run
	}
	m.spinning = true
	return tea.Batch(run, m.spinner.Tick)
}

func (m *Model) cycleProtocol() {
	if m.config == nil {
		return
	}
	current := m.store.Snapshot().Config.Protocol
	opts := widget.OptionsOf(state.Protocols)
	next := opts[util.WrapIndex(widget.IndexOf(opts, string(current)), 1, len(opts))]
	if _, err := m.config.Update("protocol", next.Value); err != nil {
		m.store.SetError(err.Error())
	}
}

// View renders the dashboard contents.
func (m *Model) View() string {
	if m.width == 0 {
		return ""
	}

	snapshot := m.store.Snapshot()
	cardWidth := max(24, m.width/4-6)

	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderServer(snapshot, cardWidth),
		m.renderIdentity(snapshot, cardWidth),
		m.renderTunnel(snapshot.Config, cardWidth),
		m.renderProgress(snapshot, cardWidth),
	)
	help := m.theme.Subtle.Render(keymap.Help(m.toggle, m.protocol))
	body := lipgloss.JoinVertical(lipgloss.Left, m.renderHero(snapshot), cards, m.renderPrivacy(snapshot, lipgloss.Width(cards)), help)

	return m.theme.Body.Copy().Width(m.width).Height(max(3, m.height)).Render(body)
}

// Title returns the tab label for this view.
func (m *Model) Title() string { return "Dashboard" }

// SetSize updates the view's drawing bounds.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetTheme updates the active palette.
func (m *Model) SetTheme(th theme.Theme) {
	m.theme = th
}

func (m *Model) renderHero(snap state.Snapshot) string {
	var headline, subtitle string
	switch snap.Status {
	case state.StatusConnecting:
		headline = m.theme.Warning.Render(m.spinner.View() + " CONNECTING")
		subtitle = connectingMessages[(m.ticks/ticksPerMessage)%len(connectingMessages)] + "..."
	case state.StatusConnected:
		headline = m.theme.Success.Render("● PROTECTED")
		if snap.Config.AdaptiveRouting {
			subtitle = "Adaptive routing keeps you on the fastest server."
		} else {
			subtitle = fmt.Sprintf("Secure tunnel to %s is active.", util.Fallback(snap.CurrentServer.City, util.ServerName(snap.CurrentServer)))
		}
	default:
		headline = m.theme.Danger.Render("○ UNPROTECTED")
		subtitle = "Your traffic is exposed. Connect to secure it."
	}
	return lipgloss.JoinVertical(lipgloss.Left, headline, m.theme.Subtle.Render(subtitle), "")
}

func (m *Model) renderServer(snap state.Snapshot, width int) string {
	srv := snap.CurrentServer
	lines := []string{m.theme.Title.Render("Server")}
	if srv.IsZero() {
		lines = append(lines, m.theme.Subtle.Render("No server selected"))
	} else {
		lines = append(lines,
			util.TruncateString(util.ServerName(srv), width-2),
			fmt.Sprintf("IP       %s", util.Fallback(srv.Address, "-")),
			fmt.Sprintf("Latency  %s", util.Latency(srv)),
			fmt.Sprintf("Load     %s", util.Load(srv)),
			m.theme.Accent.Render(originLabel(srv)),
		)
	}
	return m.theme.Card.Copy().Width(width).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderIdentity(snap state.Snapshot, width int) string {
	user := snap.User
	virtual := m.theme.Subtle.Render("not assigned")
	if user.VirtualIP != "" {
		virtual = m.theme.Success.Render(user.VirtualIP)
	}
	lines := []string{
		m.theme.Title.Render("Identity"),
		fmt.Sprintf("Real IP     %s", util.Fallback(user.RealIP, "unknown")),
		fmt.Sprintf("Virtual IP  %s", virtual),
		fmt.Sprintf("Download    %s", util.Bytes(user.DataUsage.Down)),
		fmt.Sprintf("Upload      %s", util.Bytes(user.DataUsage.Up)),
	}
	return m.theme.Card.Copy().Width(width).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderTunnel(cfg state.VPNConfig, width int) string {
	lines := []string{
		m.theme.Title.Render("Tunnel"),
		fmt.Sprintf("Protocol    %s", cfg.Protocol),
		fmt.Sprintf("Transport   %s/%d", cfg.Transport, cfg.Port),
		fmt.Sprintf("DNS         %s", util.TruncateString(cfg.EffectiveDNS(), max(4, width-14))),
		fmt.Sprintf("Kill switch %s", onOff(cfg.KillSwitch)),
		fmt.Sprintf("Adaptive    %s", onOff(cfg.AdaptiveRouting)),
	}
	return m.theme.Card.Copy().Width(width).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderProgress(snap state.Snapshot, width int) string {
	p := snap.Progression
	need := state.XPForNextLevel(p.Level)
	nearby := 0
	for _, threat := range snap.Threats {
		if threat.Nearby {
			nearby++
		}
	}
	lines := []string{
		m.theme.Title.Render("Progress"),
		fmt.Sprintf("Level %d", p.Level),
		fmt.Sprintf("%s %d/%d XP", widget.Bar(p.XP, need, max(6, width-16)), p.XP, need),
		fmt.Sprintf("Neutralized %d", p.Stats.TotalNeutralized),
		fmt.Sprintf("Threats %d pending", len(snap.Threats)),
		fmt.Sprintf("Nearby %d", nearby),
	}
	return m.theme.Card.Copy().Width(width).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderPrivacy(snap state.Snapshot, total int) string {
	report := state.PrivacyAudit(snap.Status, snap.Config)
	style := m.theme.Danger
	switch {
	case report.Score >= 80:
		style = m.theme.Success
	case report.Score >= 60:
		style = m.theme.Warning
	}
	items := make([]string, 0, len(report.Items))
	for _, item := range report.Items {
		items = append(items, m.auditMark(item.State)+" "+item.Label)
	}
	lines := []string{
		m.theme.Title.Render("Privacy"),
		fmt.Sprintf("Grade %s  %d/100", style.Render(report.Grade), report.Score),
		strings.Join(items, "  "),
	}
	card := m.theme.Card
	width := max(24, total-card.GetHorizontalBorderSize()-card.GetHorizontalMargins())
	return card.Copy().Width(width).Render(strings.Join(lines, "\n"))
}

func (m *Model) auditMark(s state.AuditState) string {
	switch s {
	case state.AuditPass:
		return m.theme.Success.Render("✓")
	case state.AuditWarn:
		return m.theme.Warning.Render("⚠")
	case state.AuditFail:
		return m.theme.Danger.Render("✕")
	default:
		return m.theme.Subtle.Render("○")
	}
}

func originLabel(srv state.Server) string {
	label := string(srv.Origin)
	if srv.Tier == state.TierOptimized {
		label += " · optimized"
	}
	return label
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
