package state

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ViewKind identifies a top-level view inside the TUI router.
type ViewKind string

const (
	ViewDashboard ViewKind = "dashboard"
	ViewServers   ViewKind = "servers"
	ViewIntel     ViewKind = "intel"
	ViewLogs      ViewKind = "logs"
	ViewSettings  ViewKind = "settings"
	ViewProfile   ViewKind = "profile"
)

// DefaultViewOrder drives the tab navigation order across the application.
var DefaultViewOrder = []ViewKind{
	ViewDashboard,
	ViewServers,
	ViewIntel,
	ViewLogs,
	ViewSettings,
	ViewProfile,
}

// Threat categories tracked out of the box.
const (
	CategoryMalware  = "malware"
	CategoryPhishing = "phishing"
	CategoryDDoS     = "ddos"
	CategorySpyware  = "spyware"
	CategoryAdware   = "adware"
	CategoryOther    = "other"
)

// DefaultCategories is the fixed set of counters present in fresh stats.
var DefaultCategories = []string{CategoryMalware, CategoryPhishing, CategoryDDoS, CategorySpyware, CategoryAdware}

const (
	statsKeyTotal = "totalNeutralized"
	statsKeyLevel = "level"
)

// Stats holds the neutralization counters that badge predicates read.
// It serializes as a flat object: {"totalNeutralized":1,"malware":1,...,"level":1}.
type Stats struct {
	TotalNeutralized int
	Level            int
	Categories       map[string]int
}

// DefaultStats returns zeroed counters at level 1.
func DefaultStats() Stats {
	cats := make(map[string]int, len(DefaultCategories))
	for _, c := range DefaultCategories {
		cats[c] = 0
	}
	return Stats{Level: 1, Categories: cats}
}

// NormalizeCategory lower-cases and trims a free-form category. Names that
// collide with the reserved stats keys are bucketed as "other".
func NormalizeCategory(category string) string {
	key := strings.ToLower(strings.TrimSpace(category))
	switch key {
	case "", strings.ToLower(statsKeyTotal), statsKeyLevel:
		return CategoryOther
	}
	return key
}

// Count returns the counter for a category (case-insensitive).
func (s Stats) Count(category string) int {
	return s.Categories[NormalizeCategory(category)]
}

// Clone returns a deep copy.
func (s Stats) Clone() Stats {
	out := Stats{TotalNeutralized: s.TotalNeutralized, Level: s.Level}
	out.Categories = make(map[string]int, len(s.Categories))
	for k, v := range s.Categories {
		out.Categories[k] = v
	}
	return out
}

// SortedCategories returns the category names in a stable order.
func (s Stats) SortedCategories() []string {
	names := make([]string, 0, len(s.Categories))
	for k := range s.Categories {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (s Stats) MarshalJSON() ([]byte, error) {
	flat := make(map[string]int, len(s.Categories)+2)
	for k, v := range s.Categories {
		flat[k] = v
	}
	flat[statsKeyTotal] = s.TotalNeutralized
	flat[statsKeyLevel] = s.Level
	return json.Marshal(flat)
}

func (s *Stats) UnmarshalJSON(data []byte) error {
	var flat map[string]int
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	if flat == nil {
		return fmt.Errorf("stats: null object")
	}
	out := DefaultStats()
	for k, v := range flat {
		if v < 0 {
			return fmt.Errorf("stats: negative counter %q", k)
		}
		switch k {
		case statsKeyTotal:
			out.TotalNeutralized = v
		case statsKeyLevel:
			out.Level = v
		default:
			out.Categories[NormalizeCategory(k)] += v
		}
	}
	if out.Level < 1 {
		out.Level = 1
	}
	*s = out
	return nil
}

// Progression is the level/xp/badge projection shown to the user.
type Progression struct {
	Level          int
	XP             int
	Stats          Stats
	UnlockedBadges []string
}

// DefaultProgression is the state of a brand new profile.
func DefaultProgression() Progression {
	return Progression{Level: 1, XP: 0, Stats: DefaultStats(), UnlockedBadges: []string{}}
}

// XPForNextLevel returns the xp needed to leave the given level.
func XPForNextLevel(level int) int {
	return level * 100
}

// LogEntry is one persisted connection log line. Timestamp is unix milliseconds.
type LogEntry struct {
	Timestamp int64  `json:"timestamp"`
	Event     string `json:"event"`
	Details   string `json:"details"`
}

// Time converts the entry timestamp.
func (e LogEntry) Time() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

// ThreatKind separates remote network threats from local radio ones.
type ThreatKind string

const (
	ThreatCyber ThreatKind = "CYBER"
	ThreatRF    ThreatKind = "RF"
)

// Threat is a simulated hostile event waiting to be neutralized.
// DistanceKM is negative when the user location is unknown.
type Threat struct {
	ID         string
	Kind       ThreatKind
	Category   string
	Name       string
	SourceIP   string
	Country    string
	Location   Location
	DistanceKM float64
	Nearby     bool
	Severity   int
	CreatedAt  time.Time
}

// XPGain is a transient award notification.
type XPGain struct {
	ID     int64
	Amount int
	At     time.Time
}

// Snapshot is a threadsafe copy of the application's state tree.
type Snapshot struct {
	ActiveView    ViewKind
	Status        ConnectionStatus
	Busy          bool
	CurrentServer Server
	Servers       []Server
	User          UserStatus
	Config        VPNConfig
	Progression   Progression
	Logs          []LogEntry
	Threats       []Threat
	XPGains       []XPGain
	Language      string
	LastError     string
}
