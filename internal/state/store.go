package state

import (
	"sync"
)

const (
	maxThreats = 50
	maxXPGains = 8
)

// Store guards shared application state needed by the core and the Bubble Tea models.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	subs     map[int]*Subscription
	nextSub  int
}

// Subscription delivers notifications when the store mutates.
type Subscription struct {
	id     int
	store  *Store
	events chan struct{}
}

// NewStore creates a state store seeded with default values.
func NewStore() *Store {
	return &Store{
		snapshot: Snapshot{
			ActiveView:  ViewDashboard,
			Status:      StatusDisconnected,
			Config:      DefaultConfig(),
			Progression: DefaultProgression(),
			Language:    "en",
		},
		subs: make(map[int]*Subscription),
	}
}

// Snapshot returns a copy of the current application state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copySnap := s.snapshot
	copySnap.Servers = cloneServers(s.snapshot.Servers)
	copySnap.Progression = cloneProgression(s.snapshot.Progression)
	copySnap.Logs = cloneSlice(s.snapshot.Logs)
	copySnap.Threats = cloneSlice(s.snapshot.Threats)
	copySnap.XPGains = cloneSlice(s.snapshot.XPGains)
	if s.snapshot.User.Location != nil {
		loc := *s.snapshot.User.Location
		copySnap.User.Location = &loc
	}
	return copySnap
}

// SetServers replaces the known server pool.
func (s *Store) SetServers(servers []Server) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Servers = cloneServers(servers)
	s.notifyLocked()
}

// Servers returns a copy of the server pool in declared order.
func (s *Store) Servers() []Server {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneServers(s.snapshot.Servers)
}

// FindServer looks up a server from the pool by id.
func (s *Store) FindServer(id string) (Server, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, srv := range s.snapshot.Servers {
		if srv.ID == id {
			return srv, true
		}
	}
	return Server{}, false
}

// SetConnection updates status, tunnel address and the busy marker in one step
// so readers never observe a virtual address without a connected status.
func (s *Store) SetConnection(status ConnectionStatus, virtualIP string, busy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Status = status
	s.snapshot.User.VirtualIP = virtualIP
	s.snapshot.Busy = busy
	s.notifyLocked()
}

// SetBusy toggles the operation-in-flight marker.
func (s *Store) SetBusy(busy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Busy = busy
	s.notifyLocked()
}

// SetCurrentServer records the selected server.
func (s *Store) SetCurrentServer(server Server) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.CurrentServer = server
	s.notifyLocked()
}

// UpdateUser applies a mutation to the user status.
func (s *Store) UpdateUser(fn func(*UserStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.snapshot.User)
	s.notifyLocked()
}

// SetConfig replaces the VPN configuration.
func (s *Store) SetConfig(cfg VPNConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Config = cfg
	s.notifyLocked()
}

// UpdateConfig applies fn to a copy of the configuration and stores the result
// only when fn succeeds.
func (s *Store) UpdateConfig(fn func(*VPNConfig) error) (VPNConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot.Config
	if err := fn(&next); err != nil {
		return s.snapshot.Config, err
	}
	s.snapshot.Config = next
	s.notifyLocked()
	return next, nil
}

// Config returns the VPN configuration.
func (s *Store) Config() VPNConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Config
}

// SetProgression replaces the progression projection.
func (s *Store) SetProgression(p Progression) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Progression = cloneProgression(p)
	s.notifyLocked()
}

// SetLogs replaces the retained connection log.
func (s *Store) SetLogs(logs []LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Logs = cloneSlice(logs)
	s.notifyLocked()
}

// AddThreat prepends a threat, evicting the oldest beyond the cap.
func (s *Store) AddThreat(threat Threat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Threats = append([]Threat{threat}, s.snapshot.Threats...)
	if len(s.snapshot.Threats) > maxThreats {
		s.snapshot.Threats = s.snapshot.Threats[:maxThreats]
	}
	s.notifyLocked()
}

// RemoveThreat drops a threat by id and returns it.
func (s *Store) RemoveThreat(id string) (Threat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, threat := range s.snapshot.Threats {
		if threat.ID == id {
			s.snapshot.Threats = append(s.snapshot.Threats[:idx:idx], s.snapshot.Threats[idx+1:]...)
			s.notifyLocked()
			return threat, true
		}
	}
	return Threat{}, false
}

// AddXPGain records a transient award notification.
func (s *Store) AddXPGain(gain XPGain) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.XPGains = append(s.snapshot.XPGains, gain)
	if len(s.snapshot.XPGains) > maxXPGains {
		s.snapshot.XPGains = s.snapshot.XPGains[len(s.snapshot.XPGains)-maxXPGains:]
	}
	s.notifyLocked()
}

// ExpireXPGain removes an award notification once it has been shown.
func (s *Store) ExpireXPGain(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, gain := range s.snapshot.XPGains {
		if gain.ID == id {
			s.snapshot.XPGains = append(s.snapshot.XPGains[:idx:idx], s.snapshot.XPGains[idx+1:]...)
			s.notifyLocked()
			return
		}
	}
}

// SetLanguage stores the active language code.
func (s *Store) SetLanguage(lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Language = lang
	s.notifyLocked()
}

// SetActiveView updates the router's active view.
func (s *Store) SetActiveView(kind ViewKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.ActiveView = kind
	s.notifyLocked()
}

// ActiveView returns the currently selected view.
func (s *Store) ActiveView() ViewKind {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot.ActiveView
}

// SetError records a user-visible error message.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastError = msg
	s.notifyLocked()
}

// Subscribe returns a subscription that receives a signal whenever the store mutates.
func (s *Store) Subscribe() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &Subscription{
		id:     s.nextSub,
		store:  s,
		events: make(chan struct{}, 1),
	}
	s.nextSub++
	s.subs[sub.id] = sub
	return sub
}

func (s *Store) notifyLocked() {
	for _, sub := range s.subs {
		select {
		case sub.events <- struct{}{}:
		default:
		}
	}
}

func (s *Store) removeSubscription(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(sub.events)
	}
}

// Events returns a channel that receives a signal for each store mutation.
func (sub *Subscription) Events() <-chan struct{} {
	if sub == nil {
		return nil
	}
	return sub.events
}

// Close stops the subscription and releases associated resources.
func (sub *Subscription) Close() {
	if sub == nil || sub.store == nil {
		return
	}
	sub.store.removeSubscription(sub.id)
	sub.store = nil
}

func cloneServers(servers []Server) []Server {
	if len(servers) == 0 {
		return nil
	}
	out := make([]Server, len(servers))
	copy(out, servers)
	return out
}

func cloneProgression(p Progression) Progression {
	out := p
	out.Stats = p.Stats.Clone()
	out.UnlockedBadges = append([]string{}, p.UnlockedBadges...)
	return out
}

func cloneSlice[T any](values []T) []T {
	if len(values) == 0 {
		return nil
	}
	out := make([]T, len(values))
	copy(out, values)
	return out
}
