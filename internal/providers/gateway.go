package providers

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/flyvpn/flyvpn-tui/internal/state"
)

// DefaultGatewayURL lists volunteer public VPN gateways as CSV.
const DefaultGatewayURL = "http://www.vpngate.net/api/iphone/"

// PublicGateway reads a VPNGate style CSV listing.
type PublicGateway struct {
	URL  string
	Doer HTTPDoer
}

func (p *PublicGateway) Origin() state.ServerOrigin { return state.OriginPublicGateway }

func (p *PublicGateway) Fetch(ctx context.Context) ([]state.Server, error) {
	url := p.URL
	if url == "" {
		url = DefaultGatewayURL
	}
	body, err := fetch(ctx, p.Doer, url)
	if err != nil {
		return nil, err
	}
	return ParseGatewayCSV(body)
}

// ParseGatewayCSV parses a listing whose second line is the header row.
// Columns are located by name; rows without an address or country are skipped.
func ParseGatewayCSV(data []byte) ([]state.Server, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	// First line is a banner such as "*vpn_servers".
	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("read banner: %w", err)
	}
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := func(name string) int {
		for i, h := range header {
			if strings.TrimSpace(h) == name {
				return i
			}
		}
		return -1
	}
	ipIdx, countryIdx := col("IP"), col("CountryLong")
	speedIdx, pingIdx, sessionsIdx := col("Speed"), col("Ping"), col("#VPN-Sessions")
	if ipIdx < 0 || countryIdx < 0 {
		return nil, errors.New("listing header lacks IP or CountryLong")
	}

	var out []state.Server
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("read row: %w", err)
		}
		if len(rec) <= 1 {
			continue
		}
		ip, country := field(rec, ipIdx), field(rec, countryIdx)
		if ip == "" || country == "" {
			continue
		}

		srv := state.Server{
			ID:      "og-" + ip,
			Country: country,
			City:    country,
			Address: ip,
			Origin:  state.OriginPublicGateway,
		}
		if ping, ok := atoi(field(rec, pingIdx)); ok {
			srv.Latency = state.IntPtr(ping)
		}
		load := GatewayLoad(field(rec, sessionsIdx), field(rec, speedIdx))
		srv.Load = state.IntPtr(load)
		out = append(out, srv)
	}
	return out, nil
}

// GatewayLoad estimates load as min(99, round(sessions / (speed/1e6) * 2)).
// Unparseable input or an undefined result is reported as 50.
func GatewayLoad(sessions, speed string) int {
	s, ok := atoi(sessions)
	if !ok {
		return 50
	}
	bps, ok := atoi(speed)
	if !ok {
		return 50
	}
	v := float64(s) / (float64(bps) / 1e6) * 2
	if math.IsNaN(v) {
		return 50
	}
	return int(math.Min(99, math.Round(v)))
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}
