package providers

import (
	"net/netip"

	"go4.org/netipx"

	"github.com/flyvpn/flyvpn-tui/internal/state"
)

var bogonPrefixes = []string{
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.0.0.0/24",
	"192.0.2.0/24",
	"192.168.0.0/16",
	"198.18.0.0/15",
	"198.51.100.0/24",
	"203.0.113.0/24",
	"224.0.0.0/4",
	"240.0.0.0/4",
	"::/128",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
	"ff00::/8",
	"2001:db8::/32",
}

var bogons = func() *netipx.IPSet {
	var b netipx.IPSetBuilder
	for _, p := range bogonPrefixes {
		b.AddPrefix(netip.MustParsePrefix(p))
	}
	set, err := b.IPSet()
	if err != nil {
		panic(err)
	}
	return set
}()

// Routable reports whether addr parses and lies outside reserved ranges.
func Routable(addr string) bool {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return false
	}
	return !bogons.Contains(ip.Unmap())
}

// FilterRoutable drops servers whose address is missing or reserved.
func FilterRoutable(servers []state.Server) []state.Server {
	out := servers[:0:0]
	for _, srv := range servers {
		if Routable(srv.Address) {
			out = append(out, srv)
		}
	}
	return out
}
