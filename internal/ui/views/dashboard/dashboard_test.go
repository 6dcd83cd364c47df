package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/flyvpn/flyvpn-tui/internal/state"
	"github.com/flyvpn/flyvpn-tui/internal/theme"
	"github.com/flyvpn/flyvpn-tui/internal/ui/view/viewtest"
)

type fakeConnection struct {
	toggles int
	err     error
}

func (f *fakeConnection) Toggle(context.Context) error {
	f.toggles++
	return f.err
}

func (f *fakeConnection) SelectServerByID(context.Context, string) error { return nil }

type fakeConfig struct {
	store *state.Store
	keys  []string
}

func (f *fakeConfig) Update(key string, value any) (state.VPNConfig, error) {
	f.keys = append(f.keys, key)
	return f.store.UpdateConfig(func(c *state.VPNConfig) error { return c.Set(key, value) })
}

var zurich = state.Server{ID: "ch-zrh", Country: "Switzerland", City: "Zurich", Latency: state.IntPtr(18), Load: state.IntPtr(35), Address: "185.159.157.10", Tier: state.TierOptimized, Origin: state.OriginPrimary}

func newDashboard(t *testing.T, conn *fakeConnection) (*Model, *state.Store, *fakeConfig) {
	t.Helper()
	store := state.NewStore()
	store.SetConfig(state.DefaultConfig())
	store.SetCurrentServer(zurich)
	store.UpdateUser(func(u *state.UserStatus) { u.RealIP = "203.0.113.42" })
	cfg := &fakeConfig{store: store}
	m := New(context.Background(), store, theme.New(theme.Options{Preferred: "dark"}), conn, cfg).(*Model)
	m.SetSize(140, 24)
	return m, store, cfg
}

func TestDashboardRendersDisconnectedSummary(t *testing.T) {
	m, _, _ := newDashboard(t, &fakeConnection{})

	viewtest.AssertContains(t, m.View(),
		"UNPROTECTED",
		"Zurich, Switzerland",
		"185.159.157.10",
		"203.0.113.42",
		"not assigned",
		"WireGuard",
		"Level 1",
		"0/100 XP",
	)
}

func TestDashboardRendersConnectedTunnel(t *testing.T) {
	m, store, _ := newDashboard(t, &fakeConnection{})
	store.SetConnection(state.StatusConnected, "10.8.0.7", false)
	store.AddThreat(state.Threat{ID: "t1", Nearby: true})
	store.AddThreat(state.Threat{ID: "t2"})

	viewtest.AssertContains(t, m.View(), "PROTECTED", "10.8.0.7", "Secure tunnel to Zurich", "Threats 2 pending", "Nearby 1")

	cfg := store.Config()
	cfg.AdaptiveRouting = true
	store.SetConfig(cfg)
	viewtest.AssertContains(t, m.View(), "Adaptive routing keeps you on the fastest server.")
}

func TestDashboardRendersPrivacyGrade(t *testing.T) {
	m, store, _ := newDashboard(t, &fakeConnection{})
	viewtest.AssertContains(t, m.View(), "Privacy", "0/100", "Kill switch")

	store.SetConnection(state.StatusConnected, "10.8.0.7", false)
	viewtest.AssertContains(t, m.View(), "42/100", "Encrypted tunnel", "Ghost mode")
}

func TestEnterTogglesConnection(t *testing.T) {
	conn := &fakeConnection{}
	m, store, _ := newDashboard(t, conn)

	viewtest.Press(m, viewtest.Key("enter"))
	if conn.toggles != 1 {
		t.Fatalf("expected one toggle, got %d", conn.toggles)
	}
	if store.Snapshot().LastError != "" {
		t.Fatalf("unexpected error %q", store.Snapshot().LastError)
	}
}

func TestToggleIgnoredWhileBusy(t *testing.T) {
	conn := &fakeConnection{}
	m, store, _ := newDashboard(t, conn)
	store.SetBusy(true)

	if cmd := m.StartToggle(); cmd != nil {
		t.Fatalf("expected no command while busy")
	}
	if conn.toggles != 0 {
		t.Fatalf("expected no toggle while busy, got %d", conn.toggles)
	}
}

func TestToggleFailureSurfacesError(t *testing.T) {
	conn := &fakeConnection{err: errors.New("connect to ch-zrh: transport failure")}
	m, store, _ := newDashboard(t, conn)

	viewtest.Press(m, viewtest.Key("c"))
	if got := store.Snapshot().LastError; got != "connect to ch-zrh: transport failure" {
		t.Fatalf("expected surfaced error, got %q", got)
	}
}

func TestProtocolKeyCyclesProtocols(t *testing.T) {
	m, store, cfg := newDashboard(t, &fakeConnection{})

	want := []state.Protocol{state.ProtocolOpenVPN, state.ProtocolIKEv2, state.ProtocolWireGuard}
	for _, protocol := range want {
		viewtest.Press(m, viewtest.Key("p"))
		if got := store.Config().Protocol; got != protocol {
			t.Fatalf("expected %s, got %s", protocol, got)
		}
	}
	if len(cfg.keys) != 3 || cfg.keys[0] != "protocol" {
		t.Fatalf("unexpected config updates %v", cfg.keys)
	}
}

func TestDashboardEmptyWithoutSize(t *testing.T) {
	m, _, _ := newDashboard(t, &fakeConnection{})
	m.SetSize(0, 0)
	if m.View() != "" {
		t.Fatalf("expected empty view before first resize")
	}
}
