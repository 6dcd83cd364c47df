package intel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brianvoe/gofakeit"
	"github.com/google/uuid"
	"github.com/umahmood/haversine"

	"github.com/flyvpn/flyvpn-tui/internal/state"
)

// Simulator defaults.
const (
	DefaultScanInterval   = 3500 * time.Millisecond
	DefaultNeutralizeTime = 1800 * time.Millisecond
	// NearbyRadiusKM bounds the distance at which a threat counts as nearby.
	NearbyRadiusKM = 1000.0
)

// CyberThreats are the remote threat categories the simulator raises.
var CyberThreats = []string{"Phishing", "Malware", "DDoS", "Spyware", "Adware", "Ransomware", "Botnet Activity"}

type rfProfile struct {
	name    string
	subType string
}

var rfThreats = []rfProfile{
	{"VHF/UHF Intercept", "Local Radio Interception"},
	{"L-Band Surveillance", "Long Range Radar"},
	{"S-Band Radar", "Weather/Airport Radar"},
	{"C-Band Radar", "Satellite Uplink"},
	{"X-Band Radar", "Precision Targeting"},
	{"Directed Microwave", "Directed Energy"},
	{"WiFi-Band Extraction", "Network Sniffing"},
	{"Ultrasonic Sensor", "Audio Surveillance"},
}

type origin struct {
	country  string
	loc      state.Location
	ipPrefix string
}

var origins = []origin{
	{"Russia", state.Location{Lat: 61.5240, Lon: 105.3188}, "91.192"},
	{"China", state.Location{Lat: 35.8617, Lon: 104.1954}, "113.88"},
	{"North Korea", state.Location{Lat: 40.3399, Lon: 127.5101}, "175.45"},
	{"Iran", state.Location{Lat: 32.4279, Lon: 53.6880}, "80.75"},
	{"Brazil", state.Location{Lat: -14.2350, Lon: -51.9253}, "189.1"},
	{"Nigeria", state.Location{Lat: 9.0820, Lon: 8.6753}, "105.112"},
	{"United States", state.Location{Lat: 38.0, Lon: -97.0}, "68.180"},
	{"Germany", state.Location{Lat: 51.0, Lon: 9.0}, "84.116"},
	{"India", state.Location{Lat: 20.5937, Lon: 78.9629}, "115.96"},
	{"Vietnam", state.Location{Lat: 14.0583, Lon: 108.2772}, "113.160"},
}

// SimulatorOptions configures a Simulator.
type SimulatorOptions struct {
	Interval time.Duration
	// AutoNeutralize is the delay before a raised threat is handled
	// automatically. Zero uses DefaultNeutralizeTime; negative disables it.
	AutoNeutralize time.Duration
	// Seed makes generation reproducible when non-zero.
	Seed   int64
	Now    func() time.Time
	Logger *slog.Logger
}

// Simulator raises fake threats into the store on a fixed cadence.
type Simulator struct {
	store   *state.Store
	service *Service
	opts    SimulatorOptions
	log     *slog.Logger
}

// NewSimulator builds a simulator. service may be nil when nothing should be
// neutralized automatically.
func NewSimulator(store *state.Store, service *Service, opts SimulatorOptions) *Simulator {
	if opts.Interval <= 0 {
		opts.Interval = DefaultScanInterval
	}
	if opts.AutoNeutralize == 0 {
		opts.AutoNeutralize = DefaultNeutralizeTime
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Seed != 0 {
		gofakeit.Seed(opts.Seed)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{store: store, service: service, opts: opts, log: logger.With("component", "intel-sim")}
}

// Run raises a threat every interval until ctx is done.
func (s *Simulator) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			threat := s.Raise()
			if s.service != nil && s.opts.AutoNeutralize > 0 {
				s.scheduleNeutralize(ctx, threat.ID)
			}
		}
	}
}

// Raise generates one threat, adds it to the store and returns it.
func (s *Simulator) Raise() state.Threat {
	user := s.store.Snapshot().User
	threat := s.generate(user.Location)
	s.store.AddThreat(threat)
	s.log.Debug("threat raised", "id", threat.ID, "kind", threat.Kind, "category", threat.Category, "nearby", threat.Nearby)
	return threat
}

func (s *Simulator) scheduleNeutralize(ctx context.Context, id string) {
	timer := time.NewTimer(s.opts.AutoNeutralize)
	go func() {
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			// Already handled manually when it is no longer pending.
			if _, err := s.service.NeutralizeThreat(id); err != nil {
				s.log.Debug("auto neutralize skipped", "id", id, "err", err)
			}
		}
	}()
}

// generate picks an RF threat near the user 60% of the time when the user
// location is known, and a remote cyber threat otherwise.
func (s *Simulator) generate(userLoc *state.Location) state.Threat {
	threat := state.Threat{
		ID:         uuid.NewString(),
		Severity:   gofakeit.Number(1, 5),
		CreatedAt:  s.opts.Now(),
		DistanceKM: -1,
	}

	if userLoc != nil && gofakeit.Number(0, 99) < 60 {
		profile := rfThreats[gofakeit.Number(0, len(rfThreats)-1)]
		threat.Kind = state.ThreatRF
		threat.Category = profile.name
		threat.Name = profile.subType
		threat.Location = state.Location{
			Lat: userLoc.Lat + gofakeit.Float64Range(-0.004, 0.004),
			Lon: userLoc.Lon + gofakeit.Float64Range(-0.004, 0.004),
		}
	} else {
		src := origins[gofakeit.Number(0, len(origins)-1)]
		threat.Kind = state.ThreatCyber
		threat.Category = CyberThreats[gofakeit.Number(0, len(CyberThreats)-1)]
		threat.Name = fmt.Sprintf("%s %s", gofakeit.HackerAdjective(), gofakeit.HackerNoun())
		threat.Country = src.country
		threat.Location = src.loc
		threat.SourceIP = fmt.Sprintf("%s.%d.%d", src.ipPrefix, gofakeit.Number(0, 254), gofakeit.Number(0, 254))
	}

	if userLoc != nil {
		threat.DistanceKM = DistanceKM(*userLoc, threat.Location)
		threat.Nearby = threat.DistanceKM <= NearbyRadiusKM
	}
	return threat
}

// DistanceKM returns the great-circle distance between two points.
func DistanceKM(a, b state.Location) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: a.Lat, Lon: a.Lon},
		haversine.Coord{Lat: b.Lat, Lon: b.Lon},
	)
	return km
}
