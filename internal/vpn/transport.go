package vpn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flyvpn/flyvpn-tui/internal/state"
)

// ErrTransport is returned when the simulated tunnel operation fails.
var ErrTransport = errors.New("transport failure")

// Transport performs the (simulated) tunnel operations. Implementations block
// until the operation completes or ctx is cancelled.
type Transport interface {
	Connect(ctx context.Context, server state.Server) (state.Server, error)
	Disconnect(ctx context.Context) error
	Switch(ctx context.Context, server state.Server) (state.Server, error)
	LookupRealIP(ctx context.Context) (string, error)
}

// Operation names a transport call for failure injection.
type Operation string

const (
	OpConnect    Operation = "connect"
	OpDisconnect Operation = "disconnect"
	OpSwitch     Operation = "switch"
	OpLookup     Operation = "lookup"
)

// Timings control how long each simulated operation suspends.
type Timings struct {
	Connect    time.Duration
	Disconnect time.Duration
	Switch     time.Duration
	Lookup     time.Duration
}

// DefaultTimings matches the latencies the dashboard was designed around.
func DefaultTimings() Timings {
	return Timings{
		Connect:    2500 * time.Millisecond,
		Disconnect: 500 * time.Millisecond,
		Switch:     1200 * time.Millisecond,
		Lookup:     1500 * time.Millisecond,
	}
}

// SimulatedRealIP is the documentation-range address reported by the simulated lookup.
const SimulatedRealIP = "203.0.113.42"

// SimulatedTransport never touches the network. It sleeps for the configured
// timing and then succeeds unless Fail returns an error for the operation.
type SimulatedTransport struct {
	Timings Timings
	Fail    func(op Operation, server state.Server) error
}

// NewSimulatedTransport returns a transport with the given timings.
func NewSimulatedTransport(timings Timings) *SimulatedTransport {
	return &SimulatedTransport{Timings: timings}
}

func (t *SimulatedTransport) Connect(ctx context.Context, server state.Server) (state.Server, error) {
	if err := t.wait(ctx, t.Timings.Connect); err != nil {
		return state.Server{}, err
	}
	if err := t.fail(OpConnect, server); err != nil {
		return state.Server{}, err
	}
	return server, nil
}

func (t *SimulatedTransport) Disconnect(ctx context.Context) error {
	if err := t.wait(ctx, t.Timings.Disconnect); err != nil {
		return err
	}
	return t.fail(OpDisconnect, state.Server{})
}

func (t *SimulatedTransport) Switch(ctx context.Context, server state.Server) (state.Server, error) {
	if err := t.wait(ctx, t.Timings.Switch); err != nil {
		return state.Server{}, err
	}
	if err := t.fail(OpSwitch, server); err != nil {
		return state.Server{}, err
	}
	return server, nil
}

func (t *SimulatedTransport) LookupRealIP(ctx context.Context) (string, error) {
	if err := t.wait(ctx, t.Timings.Lookup); err != nil {
		return "", err
	}
	if err := t.fail(OpLookup, state.Server{}); err != nil {
		return "", err
	}
	return SimulatedRealIP, nil
}

func (t *SimulatedTransport) fail(op Operation, server state.Server) error {
	if t.Fail == nil {
		return nil
	}
	if err := t.Fail(op, server); err != nil {
		return fmt.Errorf("%s: %w", op, errors.Join(ErrTransport, err))
	}
	return nil
}

func (t *SimulatedTransport) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
