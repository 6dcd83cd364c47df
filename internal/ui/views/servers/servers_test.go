package servers

import (
	"context"
	"errors"
	"testing"

	"github.com/flyvpn/flyvpn-tui/internal/state"
	"github.com/flyvpn/flyvpn-tui/internal/theme"
	"github.com/flyvpn/flyvpn-tui/internal/ui/view/viewtest"
)

var pool = []state.Server{
	{ID: "ch-zrh", Country: "Switzerland", City: "Zurich", Latency: state.IntPtr(18), Load: state.IntPtr(35), Address: "185.159.157.10", Tier: state.TierOptimized, Origin: state.OriginPrimary},
	{ID: "de-fra", Country: "Germany", City: "Frankfurt", Latency: state.IntPtr(25), Load: state.IntPtr(60), Address: "185.33.8.2", Origin: state.OriginPrimary},
	{ID: "og-219.100.37.1", Country: "Japan", City: "Japan", Address: "219.100.37.1", Origin: state.OriginPublicGateway},
}

type fakeConnection struct {
	selected []string
	err      error
}

func (f *fakeConnection) Toggle(context.Context) error { return nil }

func (f *fakeConnection) SelectServerByID(_ context.Context, id string) error {
	f.selected = append(f.selected, id)
	return f.err
}

type fakePool struct{ refreshes int }

func (f *fakePool) Refresh(_ context.Context, store *state.Store) []state.Server {
	f.refreshes++
	extended := append(append([]state.Server{}, pool...), state.Server{ID: "tor-AB12", City: "relay1", Origin: state.OriginAnonymityNetwork})
	store.SetServers(extended)
	return extended
}

func newServers(t *testing.T, conn *fakeConnection, p *fakePool) (*Model, *state.Store) {
	t.Helper()
	store := state.NewStore()
	store.SetServers(pool)
	store.SetCurrentServer(pool[0])
	m := New(context.Background(), store, theme.New(theme.Options{Preferred: "dark"}), conn, p).(*Model)
	m.SetSize(120, 20)
	return m, store
}

func TestServersViewListsPool(t *testing.T) {
	m, _ := newServers(t, &fakeConnection{}, &fakePool{})

	viewtest.AssertContains(t, m.View(),
		"3 servers",
		"primary 2",
		"public-gateway 1",
		"Zurich ★",
		"Frankfurt",
		"18ms",
		"60%",
		"219.100.37.1",
		"●",
	)
}

func TestEnterSelectsCursorServer(t *testing.T) {
	conn := &fakeConnection{}
	m, store := newServers(t, conn, &fakePool{})

	viewtest.Press(m, viewtest.Key("down"), viewtest.Key("enter"))
	if len(conn.selected) != 1 || conn.selected[0] != "de-fra" {
		t.Fatalf("expected de-fra selection, got %v", conn.selected)
	}
	viewtest.AssertContains(t, m.View(), "Switched to de-fra")
	if store.Snapshot().LastError != "" {
		t.Fatalf("unexpected error %q", store.Snapshot().LastError)
	}
}

func TestCursorWrapsAround(t *testing.T) {
	conn := &fakeConnection{}
	m, _ := newServers(t, conn, &fakePool{})

	viewtest.Press(m, viewtest.Key("k"), viewtest.Key("enter"))
	if len(conn.selected) != 1 || conn.selected[0] != "og-219.100.37.1" {
		t.Fatalf("expected wrap to last server, got %v", conn.selected)
	}
}

func TestSelectFailureIsShown(t *testing.T) {
	conn := &fakeConnection{err: errors.New("switch to de-fra: transport failure")}
	m, store := newServers(t, conn, &fakePool{})

	viewtest.Press(m, viewtest.Key("j"), viewtest.Key("enter"))
	viewtest.AssertContains(t, m.View(), "Switch failed")
	if store.Snapshot().LastError == "" {
		t.Fatalf("expected error recorded in store")
	}
}

func TestSelectSkippedWhileBusy(t *testing.T) {
	conn := &fakeConnection{}
	m, store := newServers(t, conn, &fakePool{})
	store.SetBusy(true)

	viewtest.Press(m, viewtest.Key("enter"))
	if len(conn.selected) != 0 {
		t.Fatalf("expected no selection while busy, got %v", conn.selected)
	}
	viewtest.AssertContains(t, m.View(), "in progress")
}

func TestRefreshReloadsPool(t *testing.T) {
	p := &fakePool{}
	m, _ := newServers(t, &fakeConnection{}, p)

	viewtest.Press(m, viewtest.Key("r"))
	if p.refreshes != 1 {
		t.Fatalf("expected one refresh, got %d", p.refreshes)
	}
	viewtest.AssertContains(t, m.View(), "Pool refreshed: 4 servers", "anonymity-network 1", "relay1")
}

func TestEmptyPool(t *testing.T) {
	conn := &fakeConnection{}
	m, store := newServers(t, conn, &fakePool{})
	store.SetServers(nil)

	viewtest.AssertContains(t, m.View(), "No servers available")
	viewtest.Press(m, viewtest.Key("enter"))
	if len(conn.selected) != 0 {
		t.Fatalf("expected no selection from an empty pool")
	}
}
