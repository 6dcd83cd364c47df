package state

import "time"

// ConnectionStatus is the lifecycle state of the simulated tunnel.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "DISCONNECTED"
	StatusConnecting   ConnectionStatus = "CONNECTING"
	StatusConnected    ConnectionStatus = "CONNECTED"
)

// ServerTier marks premium routing capacity on primary servers.
type ServerTier string

const (
	TierNone      ServerTier = ""
	TierStandard  ServerTier = "standard"
	TierOptimized ServerTier = "optimized"
)

// ServerOrigin identifies the provider a server entry came from.
type ServerOrigin string

const (
	OriginPrimary          ServerOrigin = "primary"
	OriginPublicGateway    ServerOrigin = "public-gateway"
	OriginAnonymityNetwork ServerOrigin = "anonymity-network"
)

// Server describes a candidate exit. Latency and Load are nil when unknown.
type Server struct {
	ID      string       `json:"id" yaml:"id"`
	Country string       `json:"country" yaml:"country"`
	City    string       `json:"city" yaml:"city"`
	Latency *int         `json:"latency" yaml:"latency"`
	Load    *int         `json:"load" yaml:"load"`
	Address string       `json:"ip" yaml:"address"`
	Tier    ServerTier   `json:"tier,omitempty" yaml:"tier,omitempty"`
	Origin  ServerOrigin `json:"type" yaml:"origin"`
}

// IsZero reports whether the server is unset.
func (s Server) IsZero() bool { return s.ID == "" }

// LatencyValue returns the latency and whether it is known.
func (s Server) LatencyValue() (int, bool) {
	if s.Latency == nil {
		return 0, false
	}
	return *s.Latency, true
}

// LoadValue returns the load percentage and whether it is known.
func (s Server) LoadValue() (int, bool) {
	if s.Load == nil {
		return 0, false
	}
	return *s.Load, true
}

// IntPtr is a small helper for building server literals.
func IntPtr(v int) *int { return &v }

// Location is a geographic coordinate in decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DataUsage holds simulated traffic counters in bytes.
type DataUsage struct {
	Down uint64 `json:"down"`
	Up   uint64 `json:"up"`
}

// UserStatus captures the client side addressing. VirtualIP is empty unless connected.
type UserStatus struct {
	RealIP    string    `json:"realIP"`
	VirtualIP string    `json:"virtualIP"`
	Location  *Location `json:"location"`
	DataUsage DataUsage `json:"dataUsage"`
	LookedUp  time.Time `json:"lookedUp,omitempty"`
}

// DefaultServer picks the first optimized server, falling back to the first entry.
func DefaultServer(pool []Server) Server {
	for _, srv := range pool {
		if srv.Tier == TierOptimized {
			return srv
		}
	}
	if len(pool) > 0 {
		return pool[0]
	}
	return Server{}
}
