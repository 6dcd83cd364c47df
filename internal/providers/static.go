package providers

import (
	"context"

	"github.com/flyvpn/flyvpn-tui/internal/state"
)

// DefaultPrimary is the built-in primary pool used when the config names none.
func DefaultPrimary() []state.Server {
	return []state.Server{
		{ID: "ch-zrh", Country: "Switzerland", City: "Zurich", Latency: state.IntPtr(24), Load: state.IntPtr(31), Address: "185.159.157.10", Tier: state.TierOptimized, Origin: state.OriginPrimary},
		{ID: "de-fra", Country: "Germany", City: "Frankfurt", Latency: state.IntPtr(18), Load: state.IntPtr(54), Address: "185.220.101.22", Tier: state.TierStandard, Origin: state.OriginPrimary},
		{ID: "nl-ams", Country: "Netherlands", City: "Amsterdam", Latency: state.IntPtr(21), Load: state.IntPtr(47), Address: "89.39.107.113", Tier: state.TierStandard, Origin: state.OriginPrimary},
		{ID: "se-sto", Country: "Sweden", City: "Stockholm", Latency: state.IntPtr(35), Load: state.IntPtr(22), Address: "45.83.220.4", Tier: state.TierOptimized, Origin: state.OriginPrimary},
		{ID: "is-rey", Country: "Iceland", City: "Reykjavik", Latency: state.IntPtr(58), Load: state.IntPtr(12), Address: "82.221.139.201", Tier: state.TierStandard, Origin: state.OriginPrimary},
		{ID: "us-nyc", Country: "United States", City: "New York", Latency: state.IntPtr(92), Load: state.IntPtr(68), Address: "23.105.171.8", Tier: state.TierStandard, Origin: state.OriginPrimary},
		{ID: "jp-tyo", Country: "Japan", City: "Tokyo", Latency: state.IntPtr(214), Load: state.IntPtr(39), Address: "45.76.99.12", Tier: state.TierStandard, Origin: state.OriginPrimary},
		{ID: "sg-sin", Country: "Singapore", City: "Singapore", Latency: state.IntPtr(188), Load: state.IntPtr(44), Address: "139.59.227.5", Tier: state.TierStandard, Origin: state.OriginPrimary},
	}
}

// Static serves a fixed list. It is mainly useful in tests and for
// additional pools declared in the config file.
type Static struct {
	origin  state.ServerOrigin
	servers []state.Server
}

// NewStatic returns a provider that always yields servers.
func NewStatic(origin state.ServerOrigin, servers []state.Server) *Static {
	return &Static{origin: origin, servers: append([]state.Server(nil), servers...)}
}

func (s *Static) Origin() state.ServerOrigin { return s.origin }

func (s *Static) Fetch(context.Context) ([]state.Server, error) {
	return append([]state.Server(nil), s.servers...), nil
}
