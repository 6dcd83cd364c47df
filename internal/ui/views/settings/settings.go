package settings

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language/display"

	"github.com/flyvpn/flyvpn-tui/internal/config"
	"github.com/flyvpn/flyvpn-tui/internal/controller"
	"github.com/flyvpn/flyvpn-tui/internal/state"
	"github.com/flyvpn/flyvpn-tui/internal/theme"
	"github.com/flyvpn/flyvpn-tui/internal/ui/components/table"
	"github.com/flyvpn/flyvpn-tui/internal/ui/view"
	"github.com/flyvpn/flyvpn-tui/internal/ui/widget"
	"github.com/flyvpn/flyvpn-tui/internal/util"
)

const (
	keyTheme    = "theme"
	keyLanguage = "language"
)

type fieldKind int

const (
	kindChoice fieldKind = iota
	kindToggle
	kindText
)

type field struct {
	key     string
	label   string
	section string
	kind    fieldKind
	options []widget.Option
}

var labels = map[string]string{
	"protocol":                     "Protocol",
	"transport":                    "Transport",
	"port":                         "Port",
	"mtu":                          "MTU",
	"dnsProvider":                  "DNS provider",
	"customDNS":                    "Custom DNS",
	"killSwitch":                   "Kill switch",
	"splitTunneling":               "Split tunneling",
	"onionOverVPN":                 "Onion over VPN",
	"obfuscation":                  "Obfuscation",
	"ghostMode":                    "Ghost mode",
	"dynamicMAC":                   "Dynamic MAC",
	"scramble":                     "Scramble",
	"multiHop":                     "Multi-hop",
	"adBlocker":                    "Ad blocker",
	"malwareShield":                "Malware shield",
	"adaptiveRouting":              "Adaptive routing",
	"secureCoreRouting":            "Secure Core routing",
	"dedicatedIP":                  "Dedicated IP",
	"dynamicIPRotation":            "Dynamic IP rotation",
	"portScrambling":               "Port scrambling",
	"antiDPIEngine":                "Anti-DPI engine",
	"decoyTrafficGenerator":        "Decoy traffic",
	"phishingShield":               "Phishing shield",
	"antiRansomwareEngine":         "Anti-ransomware",
	"spywareBlocker":               "Spyware blocker",
	"iotDeviceProtection":          "IoT protection",
	"quantumResistantEncryption":   "Quantum-resistant encryption",
	"packetPrioritizationQoS":      "Packet prioritization (QoS)",
	"jitterReduction":              "Jitter reduction",
	"advancedPortForwarding":       "Port forwarding",
	"hardwareFingerprintScrambler": "Fingerprint scrambler",
	"cameraMicGuard":               "Camera/mic guard",
	"usbDeviceGuard":               "USB guard",
	"firmwareIntegrityMonitor":     "Firmware monitor",
	"geofenceProtection":           "Geofence protection",
	"logManagerEnabled":            "Connection log",
}

// first key of each section
var sections = map[string]string{
	"protocol":          "Connection",
	"killSwitch":        "Privacy",
	"secureCoreRouting": "Advanced",
	"logManagerEnabled": "Logging",
}

var (
	portChoices = []int{51820, 1194, 443, 500, 8443}
	mtuChoices  = []int{1280, 1360, 1420, 1500}
)

// Model renders the settings view for appearance and tunnel preferences.
type Model struct {
	store    *state.Store
	theme    theme.Theme
	config   controller.ConfigManager
	settings controller.SettingsManager

	fields    []field
	focus     int
	pending   map[string]int
	themePref string

	dns     textinput.Model
	editing bool
	status  string

	width  int
	height int
}

// New constructs a settings view model. themePref is the persisted palette
// choice, which may be "auto".
func New(store *state.Store, th theme.Theme, cfg controller.ConfigManager, settings controller.SettingsManager, themePref string) view.Model {
	dns := textinput.New()
	dns.Placeholder = "1.1.1.1, 9.9.9.9"
	dns.Prompt = ""
	dns.CharLimit = 128
	dns.Cursor.SetMode(cursor.CursorStatic)

	if _, ok := theme.Parse(themePref); !ok {
		themePref = string(theme.ModeAuto)
	}
	return &Model{
		store:     store,
		theme:     th,
		config:    cfg,
		settings:  settings,
		fields:    buildFields(),
		pending:   map[string]int{},
		themePref: strings.ToLower(themePref),
		dns:       dns,
	}
}

func buildFields() []field {
	themes := make([]widget.Option, len(theme.Modes))
	for i, mode := range theme.Modes {
		themes[i] = widget.Option{Label: theme.Label(mode), Value: string(mode)}
	}
	languages := make([]widget.Option, len(config.SupportedLanguages))
	for i, tag := range config.SupportedLanguages {
		languages[i] = widget.Option{Label: display.Self.Name(tag), Value: tag.String()}
	}

	fields := []field{
		{key: keyTheme, label: "Theme", section: "Appearance", kind: kindChoice, options: themes},
		{key: keyLanguage, label: "Language", kind: kindChoice, options: languages},
	}
	for _, key := range state.ConfigKeys() {
		f := field{key: key, label: util.Fallback(labels[key], key), section: sections[key]}
		switch {
		case state.IsToggle(key):
			f.kind = kindToggle
			f.options = widget.ToggleOptions()
		case key == "customDNS":
			f.kind = kindText
		case key == "protocol":
			f.options = widget.OptionsOf(state.Protocols)
		case key == "transport":
			f.options = widget.OptionsOf(state.TransportTypes)
		case key == "dnsProvider":
			f.options = widget.OptionsOf(state.DNSProviders)
		case key == "port":
			f.options = intOptions(portChoices)
		case key == "mtu":
			f.options = intOptions(mtuChoices)
		default:
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

func intOptions(values []int) []widget.Option {
	out := make([]widget.Option, len(values))
	for i, v := range values {
		s := strconv.Itoa(v)
		out[i] = widget.Option{Label: s, Value: s}
	}
	return out
}

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Title() string { return "Settings" }

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.dns.Width = max(10, width/3)
}

func (m *Model) SetTheme(th theme.Theme) {
	m.theme = th
}

// Editing reports whether keystrokes are going to the text input.
func (m *Model) Editing() bool { return m.editing }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.editing {
		return m, m.updateEditing(keyMsg)
	}

	switch keyMsg.String() {
	case "down", "j":
		m.focus = util.WrapIndex(m.focus, 1, len(m.fields))
	case "up", "k":
		m.focus = util.WrapIndex(m.focus, -1, len(m.fields))
	case "left", "h":
		m.shiftSelection(-1)
	case "right", "l":
		m.shiftSelection(1)
	case "i":
		if m.fields[m.focus].kind == kindText {
			m.startEditing()
		}
	case "enter":
		if m.fields[m.focus].kind == kindText {
			m.startEditing()
			return m, nil
		}
		return m, m.persistAll()
	case "s":
		return m, m.persistFocused()
	}
	return m, nil
}

func (m *Model) startEditing() {
	m.editing = true
	m.dns.SetValue(m.store.Snapshot().Config.CustomDNS)
	m.dns.CursorEnd()
	m.dns.Focus()
}

func (m *Model) updateEditing(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.editing = false
		m.dns.Blur()
		m.status = m.theme.Subtle.Render("Edit cancelled")
		return nil
	case tea.KeyEnter:
		m.editing = false
		m.dns.Blur()
		value := strings.TrimSpace(m.dns.Value())
		if err := m.updateConfig("customDNS", value); err != nil {
			m.status = m.theme.Danger.Render(fmt.Sprintf("Failed to save Custom DNS: %v", err))
		} else {
			m.status = m.theme.Success.Render("Custom DNS saved")
		}
		return nil
	}
	var cmd tea.Cmd
	m.dns, cmd = m.dns.Update(msg)
	return cmd
}

func (m *Model) shiftSelection(delta int) {
	f := m.fields[m.focus]
	if f.kind == kindText {
		return
	}
	opts := m.optionsFor(f, m.store.Snapshot())
	m.pending[f.key] = util.WrapIndex(m.selected(f, opts, m.store.Snapshot()), delta, len(opts))
}

// optionsFor appends the current value to numeric choices when it is not one
// of the presets, so a hand-edited config still renders.
func (m *Model) optionsFor(f field, snap state.Snapshot) []widget.Option {
	if f.key != "port" && f.key != "mtu" {
		return f.options
	}
	current := m.currentValue(f, snap)
	for _, opt := range f.options {
		if opt.Value == current {
			return f.options
		}
	}
	return append(slices.Clone(f.options), widget.Option{Label: current, Value: current})
}

func (m *Model) currentValue(f field, snap state.Snapshot) string {
	switch f.key {
	case keyTheme:
		return m.themePref
	case keyLanguage:
		return snap.Language
	}
	value, err := snap.Config.Get(f.key)
	if err != nil {
		return ""
	}
	if b, ok := value.(bool); ok {
		if b {
			return "on"
		}
		return "off"
	}
	return fmt.Sprint(value)
}

func (m *Model) selected(f field, opts []widget.Option, snap state.Snapshot) int {
	if idx, ok := m.pending[f.key]; ok {
		return util.ClampIndex(idx, len(opts))
	}
	return widget.IndexOf(opts, m.currentValue(f, snap))
}

func (m *Model) persistFocused() tea.Cmd {
	f := m.fields[m.focus]
	if _, ok := m.pending[f.key]; !ok {
		m.status = m.theme.Subtle.Render(fmt.Sprintf("%s unchanged", f.label))
		return nil
	}
	cmd, err := m.save(f)
	if err != nil {
		m.status = m.theme.Danger.Render(fmt.Sprintf("Failed to save %s: %v", f.label, err))
		return nil
	}
	m.status = m.theme.Success.Render(fmt.Sprintf("%s set to %s", f.label, m.displayValue(f)))
	return cmd
}

func (m *Model) persistAll() tea.Cmd {
	if len(m.pending) == 0 {
		m.status = m.theme.Subtle.Render("No changes to save")
		return nil
	}
	var cmds []tea.Cmd
	saved := 0
	for _, f := range m.fields {
		if _, ok := m.pending[f.key]; !ok {
			continue
		}
		cmd, err := m.save(f)
		if err != nil {
			m.status = m.theme.Danger.Render(fmt.Sprintf("Failed to save %s: %v", f.label, err))
			return tea.Batch(cmds...)
		}
		saved++
		cmds = append(cmds, cmd)
	}
	m.status = m.theme.Success.Render(fmt.Sprintf("Settings saved (%d changed)", saved))
	return tea.Batch(cmds...)
}

// save writes the pending choice for f and clears it on success.
func (m *Model) save(f field) (tea.Cmd, error) {
	snap := m.store.Snapshot()
	opts := m.optionsFor(f, snap)
	choice := opts[m.selected(f, opts, snap)].Value

	var cmd tea.Cmd
	switch {
	case f.key == keyTheme:
		if m.settings == nil {
			return nil, fmt.Errorf("settings controller unavailable")
		}
		value, err := m.settings.SetTheme(choice)
		if err != nil {
			return nil, err
		}
		m.themePref = value
		cmd = view.ThemeChanged(value)
	case f.key == keyLanguage:
		if m.settings == nil {
			return nil, fmt.Errorf("settings controller unavailable")
		}
		if _, err := m.settings.SetLanguage(choice); err != nil {
			return nil, err
		}
	case f.kind == kindToggle:
		if err := m.updateConfig(f.key, choice == "on"); err != nil {
			return nil, err
		}
	case f.key == "port" || f.key == "mtu":
		n, err := strconv.Atoi(choice)
		if err != nil {
			return nil, err
		}
		if err := m.updateConfig(f.key, n); err != nil {
			return nil, err
		}
	default:
		if err := m.updateConfig(f.key, choice); err != nil {
			return nil, err
		}
	}
	delete(m.pending, f.key)
	return cmd, nil
}

func (m *Model) updateConfig(key string, value any) error {
	if m.config == nil {
		return fmt.Errorf("config controller unavailable")
	}
	_, err := m.config.Update(key, value)
	return err
}

func (m *Model) displayValue(f field) string {
	snap := m.store.Snapshot()
	opts := m.optionsFor(f, snap)
	if len(opts) == 0 {
		return m.currentValue(f, snap)
	}
	return opts[m.selected(f, opts, snap)].Label
}

func (m *Model) View() string {
	snap := m.store.Snapshot()

	var lines []string
	focusLine := 0
	for idx, f := range m.fields {
		if f.section != "" {
			if len(lines) > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, m.theme.Title.Render(f.section))
		}
		if idx == m.focus {
			focusLine = len(lines)
		}
		lines = append(lines, m.renderField(f, snap, idx == m.focus))
	}

	visible := max(3, m.height-4)
	start, end := table.Window(len(lines), focusLine, visible)
	body := []string{strings.Join(lines[start:end], "\n")}

	help := "↑/↓ move · ←/→ change · s save focused · enter save all"
	if m.editing {
		help = "enter save · esc cancel"
	} else if m.fields[m.focus].kind == kindText {
		help = "↑/↓ move · enter/i edit"
	}
	body = append(body, m.theme.Subtle.Render(help))
	if m.status != "" {
		body = append(body, m.status)
	}

	return lipgloss.NewStyle().Width(m.contentWidth()).Height(max(5, m.height-2)).Render(strings.Join(body, "\n"))
}

func (m *Model) renderField(f field, snap state.Snapshot, focused bool) string {
	label := f.label
	if _, ok := m.pending[f.key]; ok {
		label += "*"
	}
	if f.kind == kindText {
		value := m.theme.Subtle.Render(util.Fallback(snap.Config.CustomDNS, "not set"))
		if m.editing {
			value = m.dns.View()
		}
		marker := " "
		if focused {
			marker = m.theme.Warning.Render(">")
		}
		if snap.Config.DNSProvider != state.DNSCustom {
			value += m.theme.Subtle.Render(" (inactive)")
		}
		return fmt.Sprintf("%s %s%s", m.theme.Header.Render(label+":"), marker, value)
	}
	opts := m.optionsFor(f, snap)
	return widget.RenderOptionRow(m.theme, label, opts, m.selected(f, opts, snap), focused)
}

func (m *Model) contentWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width - 4
}
