package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bluele/gcache"
	"github.com/google/go-cmp/cmp"

	"github.com/flyvpn/flyvpn-tui/internal/state"
)

const gatewayCSV = "*vpn_servers\n" +
	"#HostName,IP,Score,Ping,Speed,CountryLong,CountryShort,NumVpnSessions,#VPN-Sessions\n" +
	"public-vpn-1,219.100.37.10,100,12,20000000,Japan,JP,5,5\n" +
	"public-vpn-2,8.8.4.4,100,,0,United States,US,0,0\n" +
	"public-vpn-3,10.1.2.3,100,30,1000000,Korea,KR,1,1\n" +
	",,,,,,,\n" +
	"*\n"

const relayJSON = `{"relays":[
 {"fingerprint":"AAAA","nickname":"exitOne","country_name":"Germany","exit_addresses":["185.220.101.1"],"consensus_weight":2500},
 {"fingerprint":"BBBB","nickname":"heavy","country_name":"France","exit_addresses":["51.15.1.1"],"consensus_weight":90000},
 {"fingerprint":"CCCC","nickname":"noexit","country_name":"Austria","consensus_weight":10}
]}`

func TestParseGatewayCSV(t *testing.T) {
	servers, err := ParseGatewayCSV([]byte(gatewayCSV))
	if err != nil {
		t.Fatalf("ParseGatewayCSV: %v", err)
	}
	want := []state.Server{
		{ID: "og-219.100.37.10", Country: "Japan", City: "Japan", Address: "219.100.37.10", Latency: state.IntPtr(12), Load: state.IntPtr(1), Origin: state.OriginPublicGateway},
		{ID: "og-8.8.4.4", Country: "United States", City: "United States", Address: "8.8.4.4", Load: state.IntPtr(50), Origin: state.OriginPublicGateway},
		{ID: "og-10.1.2.3", Country: "Korea", City: "Korea", Address: "10.1.2.3", Latency: state.IntPtr(30), Load: state.IntPtr(2), Origin: state.OriginPublicGateway},
	}
	if diff := cmp.Diff(want, servers); diff != "" {
		t.Fatalf("unexpected servers (-want +got):\n%s", diff)
	}
}

func TestParseGatewayCSVRequiresColumns(t *testing.T) {
	if _, err := ParseGatewayCSV([]byte("*vpn_servers\n#HostName,Score\nx,1\n")); err == nil {
		t.Fatalf("expected error for missing columns")
	}
}

func TestGatewayLoad(t *testing.T) {
	tests := []struct {
		sessions, speed string
		want            int
	}{
		{"5", "20000000", 1},
		{"0", "0", 50},
		{"3", "0", 99},
		{"", "1000000", 50},
		{"n/a", "1000000", 50},
		{"100", "1000000", 99},
		{"1", "", 50},
	}
	for _, tt := range tests {
		if got := GatewayLoad(tt.sessions, tt.speed); got != tt.want {
			t.Fatalf("GatewayLoad(%q, %q) = %d, want %d", tt.sessions, tt.speed, got, tt.want)
		}
	}
}

func TestParseRelays(t *testing.T) {
	servers, err := ParseRelays([]byte(relayJSON))
	if err != nil {
		t.Fatalf("ParseRelays: %v", err)
	}
	if len(servers) != 3 {
		t.Fatalf("expected 3 relays, got %d", len(servers))
	}
	first := servers[0]
	if first.ID != "tor-AAAA" || first.City != "exitOne" || first.Address != "185.220.101.1" {
		t.Fatalf("unexpected relay %+v", first)
	}
	if first.Latency != nil {
		t.Fatalf("relay latency must be unknown")
	}
	if load, _ := first.LoadValue(); load != 25 {
		t.Fatalf("expected load 25, got %d", load)
	}
	if load, _ := servers[1].LoadValue(); load != 100 {
		t.Fatalf("expected capped load, got %d", load)
	}
	if servers[2].Address != "" {
		t.Fatalf("expected empty address for relay without exits")
	}

	if _, err := ParseRelays([]byte(`{"relays":`)); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestFilterRoutable(t *testing.T) {
	in := []state.Server{
		{ID: "a", Address: "8.8.8.8"},
		{ID: "b", Address: "192.168.1.1"},
		{ID: "c", Address: ""},
		{ID: "d", Address: "2001:db8::1"},
		{ID: "e", Address: "2a00:1450::1"},
		{ID: "f", Address: "::ffff:10.0.0.1"},
	}
	got := FilterRoutable(in)
	var ids []string
	for _, srv := range got {
		ids = append(ids, srv.ID)
	}
	if diff := cmp.Diff([]string{"a", "e"}, ids); diff != "" {
		t.Fatalf("unexpected routable set (-want +got):\n%s", diff)
	}
}

type failingProvider struct{ origin state.ServerOrigin }

func (f failingProvider) Origin() state.ServerOrigin { return f.origin }
func (f failingProvider) Fetch(context.Context) ([]state.Server, error) {
	return nil, errors.New("unreachable")
}

func TestSupplierOrdersAndCaches(t *testing.T) {
	var gatewayHits, relayHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gateway":
			gatewayHits.Add(1)
			_, _ = w.Write([]byte(gatewayCSV))
		case "/relays":
			relayHits.Add(1)
			_, _ = w.Write([]byte(relayJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	primary := []state.Server{{ID: "ch-zrh", Address: "185.159.157.10", Origin: state.OriginPrimary}}
	clock := gcache.NewFakeClock()
	supplier := NewSupplier(primary, SupplierOptions{
		Providers: []Provider{
			&AnonymityNetwork{URL: srv.URL + "/relays", Doer: srv.Client()},
			&PublicGateway{URL: srv.URL + "/gateway", Doer: srv.Client()},
		},
		TTL:   time.Minute,
		Clock: clock,
	})

	pool := supplier.Pool(context.Background())
	var ids []string
	for _, s := range pool {
		ids = append(ids, s.ID)
	}
	want := []string{"ch-zrh", "tor-AAAA", "tor-BBBB", "og-219.100.37.10", "og-8.8.4.4"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("unexpected pool order (-want +got):\n%s", diff)
	}

	supplier.Pool(context.Background())
	if gatewayHits.Load() != 1 || relayHits.Load() != 1 {
		t.Fatalf("expected cached lists, got %d/%d fetches", gatewayHits.Load(), relayHits.Load())
	}

	clock.Advance(2 * time.Minute)
	supplier.Pool(context.Background())
	if gatewayHits.Load() != 2 {
		t.Fatalf("expected refetch after the ttl expired")
	}
}

func TestSupplierToleratesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	supplier := NewSupplier(DefaultPrimary(), SupplierOptions{Providers: []Provider{
		&PublicGateway{URL: srv.URL, Doer: srv.Client()},
		failingProvider{origin: state.OriginAnonymityNetwork},
	}})
	pool := supplier.Pool(context.Background())
	if diff := cmp.Diff(DefaultPrimary(), pool); diff != "" {
		t.Fatalf("expected primary pool only (-want +got):\n%s", diff)
	}
}

type countingProvider struct {
	fetches atomic.Int32
}

func (c *countingProvider) Origin() state.ServerOrigin { return state.OriginPublicGateway }
func (c *countingProvider) Fetch(context.Context) ([]state.Server, error) {
	c.fetches.Add(1)
	return []state.Server{{ID: "og-1.0.0.1", Address: "1.0.0.1"}}, nil
}

func TestRefreshServesCachedListsWithinTTL(t *testing.T) {
	store := state.NewStore()
	clock := gcache.NewFakeClock()
	counter := &countingProvider{}
	supplier := NewSupplier(DefaultPrimary(), SupplierOptions{
		Providers: []Provider{counter},
		TTL:       time.Hour,
		Clock:     clock,
	})

	for i := 0; i < 3; i++ {
		supplier.Refresh(context.Background(), store)
	}
	if got := counter.fetches.Load(); got != 1 {
		t.Fatalf("expected one fetch within the ttl, got %d", got)
	}
	if _, ok := store.FindServer("og-1.0.0.1"); !ok {
		t.Fatalf("expected cached list in the published pool")
	}

	clock.Advance(time.Hour + time.Second)
	supplier.Refresh(context.Background(), store)
	if got := counter.fetches.Load(); got != 2 {
		t.Fatalf("expected refetch after expiry, got %d", got)
	}
}

func TestStaticProvider(t *testing.T) {
	p := NewStatic(state.OriginPublicGateway, []state.Server{{ID: "x", Address: "1.1.1.1"}})
	list, err := p.Fetch(context.Background())
	if err != nil || len(list) != 1 || p.Origin() != state.OriginPublicGateway {
		t.Fatalf("unexpected static fetch %v %v", list, err)
	}
}

func TestRefreshPublishesPool(t *testing.T) {
	store := state.NewStore()
	supplier := NewSupplier(DefaultPrimary(), SupplierOptions{Providers: []Provider{
		NewStatic(state.OriginPublicGateway, []state.Server{{ID: "og-1.0.0.1", Address: "1.0.0.1"}, {ID: "og-bogon", Address: "127.0.0.1"}}),
	}})
	pool := supplier.Refresh(context.Background(), store)
	if len(pool) != len(DefaultPrimary())+1 {
		t.Fatalf("unexpected pool size %d", len(pool))
	}
	if _, ok := store.FindServer("og-1.0.0.1"); !ok {
		t.Fatalf("expected store to carry refreshed pool")
	}
	if _, ok := store.FindServer("og-bogon"); ok {
		t.Fatalf("reserved addresses must be filtered")
	}
}
