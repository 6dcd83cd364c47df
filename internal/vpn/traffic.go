package vpn

import (
	"context"
	"time"

	"github.com/brianvoe/gofakeit"

	"github.com/flyvpn/flyvpn-tui/internal/state"
)

// DefaultTrafficInterval is how often simulated traffic is accounted.
const DefaultTrafficInterval = time.Second

// TrafficMeter grows the simulated data usage counters while the tunnel is up
// and resets them once it is down.
type TrafficMeter struct {
	store    *state.Store
	interval time.Duration
	// Sample returns the bytes moved down and up during one interval.
	Sample func() (uint64, uint64)
}

// NewTrafficMeter builds a meter; a non-positive interval uses the default.
func NewTrafficMeter(store *state.Store, interval time.Duration) *TrafficMeter {
	if interval <= 0 {
		interval = DefaultTrafficInterval
	}
	return &TrafficMeter{store: store, interval: interval, Sample: randomSample}
}

// Run accounts traffic every interval until ctx is done.
func (m *TrafficMeter) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Tick applies one interval of traffic.
func (m *TrafficMeter) Tick() {
	snap := m.store.Snapshot()
	connected := snap.Status == state.StatusConnected
	if !connected && snap.User.DataUsage == (state.DataUsage{}) {
		return
	}
	var down, up uint64
	if connected {
		down, up = m.Sample()
	}
	m.store.UpdateUser(func(u *state.UserStatus) {
		if !connected {
			u.DataUsage = state.DataUsage{}
			return
		}
		u.DataUsage.Down += down
		u.DataUsage.Up += up
	})
}

func randomSample() (uint64, uint64) {
	return uint64(gofakeit.Number(64<<10, 4<<20)), uint64(gofakeit.Number(16<<10, 1<<20))
}
