package vpn

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/flyvpn/flyvpn-tui/internal/connlog"
	"github.com/flyvpn/flyvpn-tui/internal/state"
)

type event struct {
	name    string
	details string
}

type memRecorder struct {
	mu     sync.Mutex
	events []event
}

func (r *memRecorder) Record(name, details string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{name, details})
	return true
}

func (r *memRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.name
	}
	return out
}

var (
	zurich    = state.Server{ID: "ch-zrh", Country: "Switzerland", City: "Zurich", Latency: state.IntPtr(40), Address: "185.12.4.7", Tier: state.TierOptimized, Origin: state.OriginPrimary}
	frankfurt = state.Server{ID: "de-fra", Country: "Germany", City: "Frankfurt", Latency: state.IntPtr(25), Address: "185.33.8.2", Origin: state.OriginPrimary}
)

func newTestSession(t *testing.T, transport Transport) (*Session, *state.Store, *memRecorder) {
	t.Helper()
	store := state.NewStore()
	store.SetServers([]state.Server{zurich, frankfurt})
	store.SetCurrentServer(zurich)
	rec := &memRecorder{}
	if transport == nil {
		transport = NewSimulatedTransport(Timings{})
	}
	return NewSession(Options{Store: store, Transport: transport, Recorder: rec}), store, rec
}

// statusWatcher is a transport that asserts the store state while suspended.
type statusWatcher struct {
	Transport
	t     *testing.T
	store *state.Store
	seen  []state.ConnectionStatus
}

func (p *statusWatcher) Connect(ctx context.Context, server state.Server) (state.Server, error) {
	p.observe()
	return p.Transport.Connect(ctx, server)
}

func (p *statusWatcher) Switch(ctx context.Context, server state.Server) (state.Server, error) {
	p.observe()
	return p.Transport.Switch(ctx, server)
}

func (p *statusWatcher) observe() {
	snap := p.store.Snapshot()
	p.seen = append(p.seen, snap.Status)
	if snap.User.VirtualIP != "" {
		p.t.Fatalf("virtual address %q visible while %s", snap.User.VirtualIP, snap.Status)
	}
	if !snap.Busy {
		p.t.Fatalf("expected busy marker while suspended")
	}
}

func TestToggleAlternatesThroughConnecting(t *testing.T) {
	store := state.NewStore()
	store.SetCurrentServer(zurich)
	watcher := &statusWatcher{Transport: NewSimulatedTransport(Timings{}), t: t, store: store}
	session := NewSession(Options{Store: store, Transport: watcher})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := session.Toggle(ctx); err != nil {
			t.Fatalf("connect %d: %v", i, err)
		}
		snap := store.Snapshot()
		if snap.Status != state.StatusConnected || snap.User.VirtualIP != zurich.Address {
			t.Fatalf("expected connected with %s, got %s %q", zurich.Address, snap.Status, snap.User.VirtualIP)
		}
		if snap.Busy {
			t.Fatalf("busy marker left set after connect")
		}

		if err := session.Toggle(ctx); err != nil {
			t.Fatalf("disconnect %d: %v", i, err)
		}
		snap = store.Snapshot()
		if snap.Status != state.StatusDisconnected || snap.User.VirtualIP != "" {
			t.Fatalf("expected disconnected without address, got %s %q", snap.Status, snap.User.VirtualIP)
		}
	}

	if len(watcher.seen) != 3 {
		t.Fatalf("expected 3 connect attempts, got %d", len(watcher.seen))
	}
	for _, st := range watcher.seen {
		if st != state.StatusConnecting {
			t.Fatalf("transport ran while status was %s", st)
		}
	}
}

func TestToggleLogsEvents(t *testing.T) {
	session, _, rec := newTestSession(t, nil)
	ctx := context.Background()

	if err := session.Toggle(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := session.Toggle(ctx); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	want := []event{
		{"Connecting", "Establishing tunnel to Zurich..."},
		{"Connected", "Secure tunnel to Zurich (185.12.4.7) established."},
		{"Disconnected", "Tunnel closed."},
	}
	if len(rec.events) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), rec.events)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Fatalf("event %d: expected %+v, got %+v", i, want[i], rec.events[i])
		}
	}
}

func TestSelectSameServerIsNoop(t *testing.T) {
	session, store, rec := newTestSession(t, nil)
	store.SetConfig(func() state.VPNConfig {
		cfg := state.DefaultConfig()
		cfg.AdaptiveRouting = true
		return cfg
	}())
	before := store.Snapshot()

	if err := session.SelectServer(context.Background(), zurich, false); err != nil {
		t.Fatalf("SelectServer: %v", err)
	}

	after := store.Snapshot()
	if len(rec.events) != 0 {
		t.Fatalf("expected no log entries, got %v", rec.events)
	}
	if after.CurrentServer.ID != before.CurrentServer.ID || after.Status != before.Status {
		t.Fatalf("selection changed state")
	}
	if !after.Config.AdaptiveRouting {
		t.Fatalf("no-op selection must not touch adaptive routing")
	}
}

func TestSelectWhileDisconnectedOnlyUpdatesSelection(t *testing.T) {
	calls := 0
	transport := NewSimulatedTransport(Timings{})
	transport.Fail = func(op Operation, _ state.Server) error {
		calls++
		return nil
	}
	session, store, rec := newTestSession(t, transport)

	if err := session.SelectServer(context.Background(), frankfurt, false); err != nil {
		t.Fatalf("SelectServer: %v", err)
	}
	snap := store.Snapshot()
	if snap.CurrentServer.ID != frankfurt.ID || snap.Status != state.StatusDisconnected {
		t.Fatalf("unexpected state %s %s", snap.CurrentServer.ID, snap.Status)
	}
	if calls != 0 {
		t.Fatalf("expected no transport call, got %d", calls)
	}
	if got := rec.names(); len(got) != 1 || got[0] != "Server Change" {
		t.Fatalf("expected a single Server Change entry, got %v", got)
	}
}

func TestSelectWhileConnectedSwitchesTunnel(t *testing.T) {
	session, store, rec := newTestSession(t, nil)
	cfg := state.DefaultConfig()
	cfg.AdaptiveRouting = true
	store.SetConfig(cfg)
	ctx := context.Background()

	if err := session.Toggle(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := session.SelectServer(ctx, frankfurt, false); err != nil {
		t.Fatalf("SelectServer: %v", err)
	}

	snap := store.Snapshot()
	if snap.Status != state.StatusConnected || snap.User.VirtualIP != frankfurt.Address {
		t.Fatalf("expected connected via %s, got %s %q", frankfurt.Address, snap.Status, snap.User.VirtualIP)
	}
	if snap.Config.AdaptiveRouting {
		t.Fatalf("manual selection must disable adaptive routing")
	}
	last := rec.events[len(rec.events)-1]
	if last.details != "Tunnel re-established via Frankfurt (185.33.8.2)." {
		t.Fatalf("unexpected completion entry %+v", last)
	}
}

func TestAutomaticSelectionKeepsAdaptiveRouting(t *testing.T) {
	session, store, _ := newTestSession(t, nil)
	cfg := state.DefaultConfig()
	cfg.AdaptiveRouting = true
	store.SetConfig(cfg)

	if err := session.SelectServer(context.Background(), frankfurt, true); err != nil {
		t.Fatalf("SelectServer: %v", err)
	}
	if !store.Config().AdaptiveRouting {
		t.Fatalf("automatic selection must keep adaptive routing enabled")
	}
}

func TestConnectFailureRevertsToDisconnected(t *testing.T) {
	transport := NewSimulatedTransport(Timings{})
	transport.Fail = func(op Operation, _ state.Server) error {
		if op == OpConnect {
			return errors.New("handshake timeout")
		}
		return nil
	}
	session, store, rec := newTestSession(t, transport)

	err := session.Toggle(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	snap := store.Snapshot()
	if snap.Status != state.StatusDisconnected || snap.User.VirtualIP != "" || snap.Busy {
		t.Fatalf("expected clean disconnected state, got %+v", snap)
	}
	names := rec.names()
	if names[len(names)-1] != "Error" {
		t.Fatalf("expected Error entry, got %v", names)
	}
	if session.Busy() {
		t.Fatalf("busy flag leaked after failure")
	}
}

func TestSwitchFailureRevertsToConnected(t *testing.T) {
	transport := NewSimulatedTransport(Timings{})
	session, store, rec := newTestSession(t, transport)
	ctx := context.Background()
	if err := session.Toggle(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}

	transport.Fail = func(op Operation, _ state.Server) error {
		if op == OpSwitch {
			return errors.New("peer unreachable")
		}
		return nil
	}
	if err := session.SelectServer(ctx, frankfurt, true); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}

	snap := store.Snapshot()
	if snap.Status != state.StatusConnected || snap.User.VirtualIP != zurich.Address {
		t.Fatalf("expected previous tunnel kept, got %s %q", snap.Status, snap.User.VirtualIP)
	}
	if snap.CurrentServer.ID != frankfurt.ID {
		t.Fatalf("expected selection to stay on %s, got %s", frankfurt.ID, snap.CurrentServer.ID)
	}
	names := rec.names()
	if names[len(names)-1] != "Error" {
		t.Fatalf("expected Error entry, got %v", names)
	}
}

func TestCancelledConnectReverts(t *testing.T) {
	session, store, rec := newTestSession(t, NewSimulatedTransport(DefaultTimings()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := session.Toggle(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := store.Snapshot().Status; got != state.StatusDisconnected {
		t.Fatalf("expected disconnected, got %s", got)
	}
	for _, name := range rec.names() {
		if name == connlog.EventError {
			t.Fatalf("cancellation must not be logged as an error, got %v", rec.names())
		}
	}
}

func TestDrainWaitsForInFlightOperation(t *testing.T) {
	gate := &gatedTransport{
		Transport: NewSimulatedTransport(Timings{}),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	session, store, _ := newTestSession(t, gate)

	go func() { _ = session.Toggle(context.Background()) }()
	<-gate.entered

	drained := make(chan struct{})
	go func() {
		session.Drain()
		close(drained)
	}()
	select {
	case <-drained:
		t.Fatalf("drain returned while connect was suspended")
	case <-time.After(20 * time.Millisecond):
	}

	close(gate.release)
	<-drained
	if got := store.Snapshot().Status; got != state.StatusConnected {
		t.Fatalf("expected connected after drain, got %s", got)
	}
	session.Drain()
}

type gatedTransport struct {
	Transport
	entered chan struct{}
	release chan struct{}
}

func (g *gatedTransport) Connect(ctx context.Context, server state.Server) (state.Server, error) {
	close(g.entered)
	<-g.release
	return g.Transport.Connect(ctx, server)
}

func TestConcurrentOperationIsRejected(t *testing.T) {
	gate := &gatedTransport{
		Transport: NewSimulatedTransport(Timings{}),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	session, store, _ := newTestSession(t, gate)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- session.Toggle(ctx) }()
	<-gate.entered

	if err := session.Toggle(ctx); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy from toggle, got %v", err)
	}
	if err := session.SelectServer(ctx, frankfurt, true); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy from select, got %v", err)
	}

	close(gate.release)
	if err := <-done; err != nil {
		t.Fatalf("connect: %v", err)
	}
	snap := store.Snapshot()
	if snap.Status != state.StatusConnected || snap.CurrentServer.ID != zurich.ID {
		t.Fatalf("rejected calls must not disturb the in-flight connect, got %s %s", snap.Status, snap.CurrentServer.ID)
	}
}

func TestLookupSetsRealIP(t *testing.T) {
	session, store, _ := newTestSession(t, nil)
	if err := session.Lookup(context.Background()); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got := store.Snapshot().User.RealIP; got != SimulatedRealIP {
		t.Fatalf("expected %s, got %s", SimulatedRealIP, got)
	}
}

func TestLookupFailureLeavesAddressUnknown(t *testing.T) {
	transport := NewSimulatedTransport(Timings{})
	transport.Fail = func(op Operation, _ state.Server) error { return errors.New("offline") }
	session, store, _ := newTestSession(t, transport)

	if err := session.Lookup(context.Background()); err == nil {
		t.Fatalf("expected lookup error")
	}
	if got := store.Snapshot().User.RealIP; got != "" {
		t.Fatalf("expected unknown address, got %q", got)
	}
}

func TestSelectServerByIDRejectsUnknown(t *testing.T) {
	store := state.NewStore()
	session := NewSession(Options{Store: store, Transport: NewSimulatedTransport(Timings{})})
	if err := session.SelectServerByID(context.Background(), "nope"); !errors.Is(err, ErrUnknownServer) {
		t.Fatalf("expected ErrUnknownServer, got %v", err)
	}
}
