package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/flyvpn/flyvpn-tui/internal/connlog"
	"github.com/flyvpn/flyvpn-tui/internal/controller"
	"github.com/flyvpn/flyvpn-tui/internal/keymap"
	"github.com/flyvpn/flyvpn-tui/internal/state"
	"github.com/flyvpn/flyvpn-tui/internal/theme"
	"github.com/flyvpn/flyvpn-tui/internal/ui/components/table"
	"github.com/flyvpn/flyvpn-tui/internal/ui/view"
)

const scrollStep = 8

// Model shows the connection log and exports or clears it.
type Model struct {
	store     *state.Store
	theme     theme.Theme
	logs      controller.LogManager
	exportDir string
	now       func() time.Time
	keys      keymap.List
	left      key.Binding
	right     key.Binding

	offset       int
	xOffset      int
	confirmClear bool
	status       string

	width  int
	height int
}

// New builds the logs view. Exports are written to exportDir, or the working
// directory when it is empty.
func New(store *state.Store, th theme.Theme, logs controller.LogManager, exportDir string) view.Model {
	return &Model{
		store:     store,
		theme:     th,
		logs:      logs,
		exportDir: exportDir,
		now:       time.Now,
		keys:      keymap.DefaultList(),
		left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/→", "scroll")),
		right:     key.NewBinding(key.WithKeys("right", "l")),
	}
}

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Title() string { return "Logs" }

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
	if !key.Matches(keyMsg, m.keys.Clear) {
		m.confirmClear = false
	}
	switch {
	case key.Matches(keyMsg, m.keys.Up):
		m.offset = min(m.offset+1, len(m.store.Snapshot().Logs))
	case key.Matches(keyMsg, m.keys.Down):
		m.offset = max(0, m.offset-1)
	case key.Matches(keyMsg, m.left):
		m.xOffset = max(0, m.xOffset-scrollStep)
	case key.Matches(keyMsg, m.right):
		m.xOffset += scrollStep
	case key.Matches(keyMsg, m.keys.Export):
		m.export()
	case key.Matches(keyMsg, m.keys.Clear):
		m.clear()
	}
	return m, nil
}

func (m *Model) export() {
	if m.logs == nil {
		m.status = m.theme.Danger.Render("Log controller unavailable")
		return
	}
	if len(m.logs.Entries()) == 0 {
		m.status = m.theme.Warning.Render("Nothing to export")
		return
	}
	path := filepath.Join(m.exportDir, connlog.ExportFileName(m.now()))
	if err := writeExport(path, m.logs); err != nil {
		m.status = m.theme.Danger.Render(fmt.Sprintf("Export failed: %v", err))
		return
	}
	m.status = m.theme.Success.Render("Exported to " + path)
}

func writeExport(path string, logs controller.LogManager) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	if err := logs.Export(f); err != nil {
		f.Close()
		return fmt.Errorf("write export: %w", err)
	}
	return f.Close()
}

func (m *Model) clear() {
	if m.logs == nil {
		m.status = m.theme.Danger.Render("Log controller unavailable")
		return
	}
	if !m.confirmClear {
		m.confirmClear = true
		m.status = m.theme.Warning.Render("Press x again to clear the log")
		return
	}
	m.confirmClear = false
	if err := m.logs.Clear(); err != nil {
		m.status = m.theme.Danger.Render(fmt.Sprintf("Clear failed: %v", err))
		return
	}
	m.offset, m.xOffset = 0, 0
	m.status = m.theme.Success.Render("Log cleared")
}

func (m *Model) View() string {
	snap := m.store.Snapshot()
	entries := snap.Logs

	lines := []string{m.theme.Title.Render(fmt.Sprintf("Connection log (%d/%d)", len(entries), connlog.MaxEntries))}
	if !snap.Config.LogManagerEnabled {
		lines = append(lines, m.theme.Warning.Render("Logging is disabled. New events are not recorded."))
	}
	if len(entries) == 0 {
		lines = append(lines, m.theme.Subtle.Render("No connection events yet"))
	}

	visible := max(3, m.height-6)
	end := len(entries) - min(m.offset, max(0, len(entries)-visible))
	start := max(0, end-visible)
	rows := make([]string, 0, end-start)
	for _, entry := range entries[start:end] {
		rows = append(rows, m.renderEntry(entry))
	}
	lines = append(lines, table.ClipRows(rows, m.xOffset, max(20, m.width-4))...)

	lines = append(lines, m.theme.Subtle.Render(keymap.Help(m.keys.Up, m.keys.Down, m.left, m.keys.Export, m.keys.Clear)))
	if m.status != "" {
		lines = append(lines, m.status)
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderEntry(entry state.LogEntry) string {
	line := connlog.FormatEntry(entry)
	switch entry.Event {
	case connlog.EventError:
		return m.theme.Danger.Render(line)
	case connlog.EventConnected:
		return m.theme.Success.Render(line)
	case connlog.EventServerChange:
		return m.theme.Accent.Render(line)
	}
	return line
}
