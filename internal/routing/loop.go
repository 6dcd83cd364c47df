// Package routing runs the adaptive server selection loop.
package routing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/tevino/abool"

	"github.com/flyvpn/flyvpn-tui/internal/state"
	"github.com/flyvpn/flyvpn-tui/internal/vpn"
)

// DefaultInterval is how often the pool is re-evaluated while active.
const DefaultInterval = 30 * time.Second

var (
	evaluationsTotal = metrics.NewCounter("flyvpn_routing_evaluations_total")
	autoSwitchTotal  = metrics.NewCounter("flyvpn_routing_switches_total")
)

// Selector switches to a server. *vpn.Session satisfies it.
type Selector interface {
	SelectServer(ctx context.Context, server state.Server, automatic bool) error
}

// Options configures a Loop.
type Options struct {
	Store    *state.Store
	Selector Selector
	Interval time.Duration
	Logger   *slog.Logger
}

// Loop polls while adaptive routing is enabled and the tunnel is connected.
// The ticker is restarted whenever the enable flag, the status or the current
// server changes, so a tick never acts on a superseded server.
type Loop struct {
	store    *state.Store
	selector Selector
	interval time.Duration
	log      *slog.Logger

	active *abool.AtomicBool
}

// New builds a loop; a non-positive interval uses DefaultInterval.
func New(opts Options) *Loop {
	l := &Loop{
		store:    opts.Store,
		selector: opts.Selector,
		interval: opts.Interval,
		log:      opts.Logger,
		active:   abool.New(),
	}
	if l.interval <= 0 {
		l.interval = DefaultInterval
	}
	if l.log == nil {
		l.log = slog.Default()
	}
	return l
}

// Active reports whether the ticker is currently running.
func (l *Loop) Active() bool {
	return l.active.IsSet()
}

type trigger struct {
	adaptive bool
	status   state.ConnectionStatus
	serverID string
}

func (t trigger) enabled() bool {
	return t.adaptive && t.status == state.StatusConnected
}

func triggerOf(snap state.Snapshot) trigger {
	return trigger{
		adaptive: snap.Config.AdaptiveRouting,
		status:   snap.Status,
		serverID: snap.CurrentServer.ID,
	}
}

// Run blocks until ctx is done. The ticker goroutine never outlives Run.
func (l *Loop) Run(ctx context.Context) error {
	sub := l.store.Subscribe()
	defer sub.Close()

	var (
		stopTicker func()
		last       trigger
		started    bool
	)
	stop := func() {
		if stopTicker != nil {
			stopTicker()
			stopTicker = nil
		}
	}
	defer stop()

	apply := func() {
		current := triggerOf(l.store.Snapshot())
		if started && current == last {
			return
		}
		started = true
		last = current
		stop()
		if current.enabled() {
			stopTicker = l.startTicker(ctx)
		}
	}

	apply()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-sub.Events():
			if !ok {
				return nil
			}
			apply()
		}
	}
}

// startTicker launches the polling goroutine and returns a function that
// cancels it and waits for it to exit.
func (l *Loop) startTicker(parent context.Context) func() {
	tickCtx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	l.active.Set()
	l.log.Debug("adaptive routing armed", "interval", l.interval)

	go func() {
		defer close(done)
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticker.C:
				// The switch uses the parent context: the switch itself changes
				// the current server and would otherwise cancel itself.
				l.evaluate(parent)
			}
		}
	}()

	return func() {
		cancel()
		<-done
		l.active.UnSet()
		l.log.Debug("adaptive routing disarmed")
	}
}

func (l *Loop) evaluate(ctx context.Context) {
	evaluationsTotal.Inc()
	snap := l.store.Snapshot()
	if !triggerOf(snap).enabled() {
		return
	}
	fastest, ok := FastestServer(snap.Servers)
	if !ok || fastest.ID == snap.CurrentServer.ID {
		return
	}

	l.log.Info("adaptive routing switching server", "from", snap.CurrentServer.ID, "to", fastest.ID)
	err := l.selector.SelectServer(ctx, fastest, true)
	switch {
	case err == nil:
		autoSwitchTotal.Inc()
	case errors.Is(err, vpn.ErrBusy):
		l.log.Debug("adaptive routing skipped tick, session busy")
	default:
		l.log.Warn("adaptive routing switch failed", "server", fastest.ID, "err", err)
	}
}

// FastestServer returns the server with the lowest known latency. Servers
// with unknown latency are skipped; ties go to the earliest in pool order.
func FastestServer(pool []state.Server) (state.Server, bool) {
	var (
		best    state.Server
		bestLat int
		found   bool
	)
	for _, srv := range pool {
		lat, ok := srv.LatencyValue()
		if !ok {
			continue
		}
		if !found || lat < bestLat {
			best, bestLat, found = srv, lat, true
		}
	}
	return best, found
}
