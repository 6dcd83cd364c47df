package providers

import (
	"context"
	"errors"
	"math"

	"github.com/tidwall/gjson"

	"github.com/flyvpn/flyvpn-tui/internal/state"
)

// DefaultRelayURL lists exit relays of the anonymity network.
const DefaultRelayURL = "https://onionoo.torproject.org/details?type=relay&flag=Exit&limit=200"

// AnonymityNetwork reads an onionoo style relay document.
type AnonymityNetwork struct {
	URL  string
	Doer HTTPDoer
}

func (p *AnonymityNetwork) Origin() state.ServerOrigin { return state.OriginAnonymityNetwork }

func (p *AnonymityNetwork) Fetch(ctx context.Context) ([]state.Server, error) {
	url := p.URL
	if url == "" {
		url = DefaultRelayURL
	}
	body, err := fetch(ctx, p.Doer, url)
	if err != nil {
		return nil, err
	}
	return ParseRelays(body)
}

// ParseRelays maps each relay to a server. Latency is never known; load is
// approximated from the consensus weight and capped at 100.
func ParseRelays(data []byte) ([]state.Server, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("relay document is not valid json")
	}
	relays := gjson.GetBytes(data, "relays")
	if !relays.IsArray() {
		return nil, errors.New("relay document has no relays array")
	}

	var out []state.Server
	relays.ForEach(func(_, relay gjson.Result) bool {
		fp := relay.Get("fingerprint").String()
		if fp == "" {
			return true
		}
		load := int(math.Round(relay.Get("consensus_weight").Float() / 10000 * 100))
		if load > 100 {
			load = 100
		}
		out = append(out, state.Server{
			ID:      "tor-" + fp,
			Country: relay.Get("country_name").String(),
			City:    relay.Get("nickname").String(),
			Address: relay.Get("exit_addresses.0").String(),
			Load:    state.IntPtr(load),
			Origin:  state.OriginAnonymityNetwork,
		})
		return true
	})
	return out, nil
}
