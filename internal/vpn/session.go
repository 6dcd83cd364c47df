// Package vpn drives the simulated tunnel lifecycle: connect, disconnect and
// server switches against a Transport, serialized by an in-flight flag.
package vpn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/VictoriaMetrics/metrics"
	"github.com/tevino/abool"

	"github.com/flyvpn/flyvpn-tui/internal/connlog"
	"github.com/flyvpn/flyvpn-tui/internal/state"
)

var (
	// ErrBusy is returned when another connection operation is still in flight.
	ErrBusy = errors.New("connection operation already in progress")
	// ErrNoServer is returned when connecting without a selected server.
	ErrNoServer = errors.New("no server selected")
	// ErrUnknownServer is returned when a server id is not in the pool.
	ErrUnknownServer = errors.New("unknown server")
)

var (
	connectsTotal    = metrics.NewCounter("flyvpn_session_connects_total")
	disconnectsTotal = metrics.NewCounter("flyvpn_session_disconnects_total")
	busyRejections   = metrics.NewCounter("flyvpn_session_busy_rejections_total")
)

func switchCounter(automatic bool) *metrics.Counter {
	mode := "manual"
	if automatic {
		mode = "automatic"
	}
	return metrics.GetOrCreateCounter(fmt.Sprintf(`flyvpn_session_switches_total{mode=%q}`, mode))
}

func failureCounter(op Operation) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`flyvpn_session_failures_total{op=%q}`, op))
}

// Recorder receives connection events in completion order.
type Recorder interface {
	Record(event, details string) bool
}

// ConfigUpdater applies keyed configuration updates.
type ConfigUpdater interface {
	Update(key string, value any) (state.VPNConfig, error)
}

// Options configures a Session.
type Options struct {
	Store     *state.Store
	Transport Transport
	Recorder  Recorder
	Config    ConfigUpdater
	Logger    *slog.Logger
}

// Session is the connection state machine. Status, current server and the
// virtual address live in the shared store; the session is their only writer.
type Session struct {
	store     *state.Store
	transport Transport
	recorder  Recorder
	config    ConfigUpdater
	log       *slog.Logger

	busy *abool.AtomicBool
	// op is held for the duration of an operation so Drain can wait for it.
	op sync.Mutex
}

// NewSession builds a session. A nil Transport uses the simulated one with
// default timings; a nil Recorder drops events.
func NewSession(opts Options) *Session {
	s := &Session{
		store:     opts.Store,
		transport: opts.Transport,
		recorder:  opts.Recorder,
		config:    opts.Config,
		log:       opts.Logger,
		busy:      abool.New(),
	}
	if s.store == nil {
		s.store = state.NewStore()
	}
	if s.transport == nil {
		s.transport = NewSimulatedTransport(DefaultTimings())
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.config == nil {
		s.config = NewConfigService(s.store, nil, s.log)
	}
	return s
}

// Status returns the current connection status.
func (s *Session) Status() state.ConnectionStatus {
	return s.store.Snapshot().Status
}

// CurrentServer returns the selected server.
func (s *Session) CurrentServer() state.Server {
	return s.store.Snapshot().CurrentServer
}

// Drain blocks until the operation in flight, if any, has finished.
func (s *Session) Drain() {
	s.op.Lock()
	defer s.op.Unlock()
}

// Busy reports whether an operation is in flight.
func (s *Session) Busy() bool {
	return s.busy.IsSet()
}

// Toggle connects when disconnected and disconnects when connected.
// It returns ErrBusy while another operation is suspended.
func (s *Session) Toggle(ctx context.Context) error {
	if !s.acquire() {
		return ErrBusy
	}
	defer s.release()

	snap := s.store.Snapshot()
	switch snap.Status {
	case state.StatusDisconnected:
		return s.connect(ctx, snap.CurrentServer)
	case state.StatusConnected:
		return s.disconnect(ctx, snap.User.VirtualIP)
	default:
		// CONNECTING is only observable while an operation holds the flag.
		return ErrBusy
	}
}

// SelectServer makes server current. When connected the tunnel is switched;
// otherwise only the selection changes. Manual selections disable adaptive
// routing. Selecting the current server is a no-op.
func (s *Session) SelectServer(ctx context.Context, server state.Server, automatic bool) error {
	if server.IsZero() {
		return ErrNoServer
	}
	if !s.acquire() {
		return ErrBusy
	}
	defer s.release()

	snap := s.store.Snapshot()
	if server.ID == snap.CurrentServer.ID {
		return nil
	}

	s.store.SetCurrentServer(server)
	s.record(connlog.EventServerChange, fmt.Sprintf("Initiating switch to %s.", server.City))
	switchCounter(automatic).Inc()

	var err error
	if snap.Status == state.StatusConnected {
		err = s.switchTunnel(ctx, server, snap.User.VirtualIP)
	}

	if !automatic {
		if _, cfgErr := s.config.Update("adaptiveRouting", false); cfgErr != nil {
			s.log.Warn("failed to disable adaptive routing", "err", cfgErr)
		}
	}
	return err
}

// SelectServerByID is a manual selection of a server from the pool.
func (s *Session) SelectServerByID(ctx context.Context, id string) error {
	server, ok := s.store.FindServer(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownServer, id)
	}
	return s.SelectServer(ctx, server, false)
}

// Lookup resolves the real address once. Failure leaves it unknown.
func (s *Session) Lookup(ctx context.Context) error {
	ip, err := s.transport.LookupRealIP(ctx)
	if err != nil {
		failureCounter(OpLookup).Inc()
		s.log.Warn("real address lookup failed", "err", err)
		return fmt.Errorf("lookup real address: %w", err)
	}
	s.store.UpdateUser(func(u *state.UserStatus) {
		u.RealIP = ip
	})
	return nil
}

func (s *Session) connect(ctx context.Context, server state.Server) error {
	if server.IsZero() {
		return ErrNoServer
	}

	s.store.SetConnection(state.StatusConnecting, "", true)
	s.record(connlog.EventConnecting, fmt.Sprintf("Establishing tunnel to %s...", server.City))

	connected, err := s.transport.Connect(ctx, server)
	if err != nil {
		s.store.SetConnection(state.StatusDisconnected, "", true)
		s.fail(OpConnect, server.ID, fmt.Sprintf("Connection to %s failed: %v", server.City, err), err)
		return fmt.Errorf("connect to %s: %w", server.ID, err)
	}

	s.store.SetConnection(state.StatusConnected, connected.Address, true)
	connectsTotal.Inc()
	s.record(connlog.EventConnected, fmt.Sprintf("Secure tunnel to %s (%s) established.", server.City, server.Address))
	s.log.Info("connected", "server", server.ID, "address", connected.Address)
	return nil
}

func (s *Session) disconnect(ctx context.Context, virtualIP string) error {
	if err := s.transport.Disconnect(ctx); err != nil {
		s.store.SetConnection(state.StatusConnected, virtualIP, true)
		s.fail(OpDisconnect, "", fmt.Sprintf("Disconnect failed: %v", err), err)
		return fmt.Errorf("disconnect: %w", err)
	}

	s.store.SetConnection(state.StatusDisconnected, "", true)
	disconnectsTotal.Inc()
	s.record(connlog.EventDisconnected, "Tunnel closed.")
	s.log.Info("disconnected")
	return nil
}

func (s *Session) switchTunnel(ctx context.Context, server state.Server, previousIP string) error {
	s.store.SetConnection(state.StatusConnecting, "", true)

	switched, err := s.transport.Switch(ctx, server)
	if err != nil {
		s.store.SetConnection(state.StatusConnected, previousIP, true)
		s.fail(OpSwitch, server.ID, fmt.Sprintf("Switch to %s failed: %v", server.City, err), err)
		return fmt.Errorf("switch to %s: %w", server.ID, err)
	}

	s.store.SetConnection(state.StatusConnected, switched.Address, true)
	s.record(connlog.EventServerChange, fmt.Sprintf("Tunnel re-established via %s (%s).", server.City, server.Address))
	s.log.Info("server switched", "server", server.ID, "address", switched.Address)
	return nil
}

// fail reports a transport failure. A cancelled context is only logged.
func (s *Session) fail(op Operation, serverID, details string, err error) {
	if errors.Is(err, context.Canceled) {
		s.log.Info("connection operation cancelled", "op", op, "server", serverID)
		return
	}
	failureCounter(op).Inc()
	s.record(connlog.EventError, details)
	s.log.Error("connection operation failed", "op", op, "server", serverID, "err", err)
}

func (s *Session) acquire() bool {
	if !s.busy.SetToIf(false, true) {
		busyRejections.Inc()
		return false
	}
	s.op.Lock()
	s.store.SetBusy(true)
	return true
}

func (s *Session) release() {
	s.store.SetBusy(false)
	s.op.Unlock()
	s.busy.UnSet()
}

func (s *Session) record(event, details string) {
	if s.recorder != nil {
		s.recorder.Record(event, details)
	}
}
