package settings

import (
	"errors"
	"strings"
	"testing"

	"github.com/flyvpn/flyvpn-tui/internal/state"
	"github.com/flyvpn/flyvpn-tui/internal/theme"
	"github.com/flyvpn/flyvpn-tui/internal/ui/view"
	"github.com/flyvpn/flyvpn-tui/internal/ui/view/viewtest"
	"github.com/flyvpn/flyvpn-tui/internal/util"
)

type fakeSettingsController struct {
	store         *state.Store
	setThemeCalls int
	lastTheme     string
	lastLanguage  string
}

func (f *fakeSettingsController) SetTheme(name string) (string, error) {
	f.setThemeCalls++
	f.lastTheme = name
	return name, nil
}

func (f *fakeSettingsController) SetLanguage(code string) (string, error) {
	f.lastLanguage = code
	f.store.SetLanguage(code)
	return code, nil
}

type fakeConfig struct {
	store *state.Store
	keys  []string
	err   error
}

func (f *fakeConfig) Update(key string, value any) (state.VPNConfig, error) {
	if f.err != nil {
		return state.VPNConfig{}, f.err
	}
	f.keys = append(f.keys, key)
	return f.store.UpdateConfig(func(c *state.VPNConfig) error { return c.Set(key, value) })
}

func newSettings(t *testing.T) (*Model, *state.Store, *fakeConfig, *fakeSettingsController) {
	t.Helper()
	store := state.NewStore()
	cfg := &fakeConfig{store: store}
	ctrl := &fakeSettingsController{store: store}
	m := New(store, theme.New(theme.Options{Preferred: "dark"}), cfg, ctrl, "auto").(*Model)
	m.SetSize(160, 80)
	return m, store, cfg, ctrl
}

func press(m *Model, keys ...string) []any {
	var out []any
	for _, k := range keys {
		_, msgs := viewtest.Press(m, viewtest.Key(k))
		for _, msg := range msgs {
			out = append(out, msg)
		}
	}
	return out
}

func repeat(key string, n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = key
	}
	return keys
}

func TestSettingsViewRenderContainsFields(t *testing.T) {
	m, _, _, _ := newSettings(t)

	viewtest.AssertContains(t, m.View(),
		"Appearance",
		"Theme:",
		"Auto",
		"Language:",
		"English",
		"Deutsch",
		"Connection",
		"WireGuard",
		"51820",
		"Kill switch:",
		"Quantum-resistant encryption:",
		"Connection log:",
		"not set (inactive)",
	)
}

func TestSettingsViewPersistThemeOnSaveFocused(t *testing.T) {
	m, _, _, ctrl := newSettings(t)

	msgs := press(m, "right", "s")

	if ctrl.setThemeCalls != 1 {
		t.Fatalf("expected SetTheme to be called once, got %d", ctrl.setThemeCalls)
	}
	if ctrl.lastTheme != "dark" {
		t.Fatalf("expected dark theme, got %q", ctrl.lastTheme)
	}
	found := false
	for _, msg := range msgs {
		if changed, ok := msg.(view.ThemeChangedMsg); ok && changed.Mode == "dark" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected theme change message, got %v", msgs)
	}
}

func TestSaveUnchangedFieldIsNoop(t *testing.T) {
	m, _, _, ctrl := newSettings(t)

	press(m, "s")
	if ctrl.setThemeCalls != 0 {
		t.Fatalf("expected no save for unchanged theme")
	}
	viewtest.AssertContains(t, m.View(), "Theme unchanged")
}

func TestLanguageSelection(t *testing.T) {
	m, store, _, ctrl := newSettings(t)

	press(m, "down", "right", "s")
	if ctrl.lastLanguage != "de" {
		t.Fatalf("expected de, got %q", ctrl.lastLanguage)
	}
	if got := store.Snapshot().Language; got != "de" {
		t.Fatalf("expected store language de, got %q", got)
	}
}

func TestToggleKillSwitch(t *testing.T) {
	m, store, cfg, _ := newSettings(t)

	press(m, repeat("down", 8)...)
	press(m, "right")
	viewtest.AssertContains(t, m.View(), "Kill switch*:")
	if !store.Config().KillSwitch {
		t.Fatalf("pending change should not apply before save")
	}

	press(m, "s")
	if store.Config().KillSwitch {
		t.Fatalf("expected kill switch disabled")
	}
	if len(cfg.keys) != 1 || cfg.keys[0] != "killSwitch" {
		t.Fatalf("unexpected updates %v", cfg.keys)
	}
	viewtest.AssertContains(t, m.View(), "Kill switch set to Off")
}

func TestEnterSavesAllPending(t *testing.T) {
	m, store, cfg, _ := newSettings(t)

	press(m, "down", "down", "right", "down", "right", "down", "right", "enter")

	got := store.Config()
	if got.Protocol != state.ProtocolOpenVPN || got.Transport != state.TransportTCP || got.Port != 1194 {
		t.Fatalf("unexpected config %+v", got)
	}
	if strings.Join(cfg.keys, ",") != "protocol,transport,port" {
		t.Fatalf("unexpected update order %v", cfg.keys)
	}
	viewtest.AssertContains(t, m.View(), "Settings saved (3 changed)")

	press(m, "enter")
	viewtest.AssertContains(t, m.View(), "No changes to save")
}

func TestCustomDNSEditing(t *testing.T) {
	m, store, _, _ := newSettings(t)

	press(m, repeat("down", 7)...)
	press(m, "enter")
	if !m.Editing() {
		t.Fatalf("expected edit mode")
	}
	press(m, "9.9.9.9", "enter")

	if m.Editing() {
		t.Fatalf("expected edit mode to end")
	}
	if got := store.Config().CustomDNS; got != "9.9.9.9" {
		t.Fatalf("expected custom dns saved, got %q", got)
	}

	press(m, "i", "1", "esc")
	if got := store.Config().CustomDNS; got != "9.9.9.9" {
		t.Fatalf("cancelled edit must not save, got %q", got)
	}
	viewtest.AssertContains(t, m.View(), "Edit cancelled")
}

func TestSaveFailureShowsStatus(t *testing.T) {
	m, store, cfg, _ := newSettings(t)
	cfg.err = errors.New("disk full")

	press(m, repeat("down", 8)...)
	press(m, "right", "s")

	viewtest.AssertContains(t, m.View(), "Failed to save Kill switch: disk full", "Kill switch*:")
	if !store.Config().KillSwitch {
		t.Fatalf("failed save must not change config")
	}
}

func TestViewScrollsToFocusedField(t *testing.T) {
	m, _, _, _ := newSettings(t)
	m.SetSize(160, 10)

	out := util.StripANSI(m.View())
	if !strings.Contains(out, "Theme:") || strings.Contains(out, "Connection log:") {
		t.Fatalf("expected top of list, got:\n%s", out)
	}

	press(m, "up")
	out = util.StripANSI(m.View())
	if strings.Contains(out, "Theme:") || !strings.Contains(out, "Connection log:") {
		t.Fatalf("expected bottom of list, got:\n%s", out)
	}
}
