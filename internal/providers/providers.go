// Package providers assembles the server pool: the configured primary servers
// followed by optional public node lists fetched over HTTP.
package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/bluele/gcache"
	"golang.org/x/sync/errgroup"

	"github.com/flyvpn/flyvpn-tui/internal/state"
)

// DefaultTTL is how long a fetched public list is reused.
const DefaultTTL = 10 * time.Minute

const maxBodyBytes = 8 << 20

var fetchFailures = metrics.NewCounter("flyvpn_providers_fetch_failures_total")

// Provider fetches one public server list.
type Provider interface {
	Origin() state.ServerOrigin
	Fetch(ctx context.Context) ([]state.Server, error)
}

// HTTPDoer allows tests to stub HTTP transport.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SupplierOptions configures a Supplier.
type SupplierOptions struct {
	Providers []Provider
	TTL       time.Duration
	Logger    *slog.Logger
	// Clock drives cache expiry; nil uses the wall clock.
	Clock gcache.Clock
}

// Supplier returns the merged pool in the order primary, then each provider
// in the order given. Provider failures yield no entries from that provider.
type Supplier struct {
	primary   []state.Server
	providers []Provider
	cache     gcache.Cache
	ttl       time.Duration
	log       *slog.Logger
}

// NewSupplier builds a supplier around a static primary pool.
func NewSupplier(primary []state.Server, opts SupplierOptions) *Supplier {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	size := len(opts.Providers)
	if size == 0 {
		size = 1
	}
	builder := gcache.New(size).LRU()
	if opts.Clock != nil {
		builder = builder.Clock(opts.Clock)
	}
	return &Supplier{
		primary:   append([]state.Server(nil), primary...),
		providers: opts.Providers,
		cache:     builder.Build(),
		ttl:       opts.TTL,
		log:       logger.With("component", "providers"),
	}
}

// Primary returns the static pool.
func (s *Supplier) Primary() []state.Server {
	return append([]state.Server(nil), s.primary...)
}

// Pool fetches every provider concurrently and returns the merged pool.
// Entries whose id was already seen are dropped.
func (s *Supplier) Pool(ctx context.Context) []state.Server {
	lists := make([][]state.Server, len(s.providers))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range s.providers {
		g.Go(func() error {
			lists[i] = s.load(gctx, p)
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]struct{})
	out := make([]state.Server, 0, len(s.primary))
	add := func(list []state.Server) {
		for _, srv := range list {
			if _, ok := seen[srv.ID]; ok {
				continue
			}
			seen[srv.ID] = struct{}{}
			out = append(out, srv)
		}
	}
	add(s.primary)
	for _, list := range lists {
		add(list)
	}
	return out
}

// Refresh publishes the merged pool to store. Provider lists younger than the
// TTL are served from the cache.
func (s *Supplier) Refresh(ctx context.Context, store *state.Store) []state.Server {
	pool := s.Pool(ctx)
	store.SetServers(pool)
	return pool
}

func (s *Supplier) load(ctx context.Context, p Provider) []state.Server {
	key := string(p.Origin())
	if cached, err := s.cache.Get(key); err == nil {
		if list, ok := cached.([]state.Server); ok {
			return list
		}
	}

	list, err := p.Fetch(ctx)
	if err != nil {
		fetchFailures.Inc()
		s.log.Warn("public node fetch failed", "origin", key, "err", err)
		return nil
	}
	list = FilterRoutable(list)
	if err := s.cache.SetWithExpire(key, list, s.ttl); err != nil {
		s.log.Debug("provider cache set failed", "origin", key, "err", err)
	}
	s.log.Info("public nodes fetched", "origin", key, "count", len(list))
	return list
}

func fetch(ctx context.Context, doer HTTPDoer, url string) ([]byte, error) {
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "flyvpn-tui")
	resp, err := doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("request %s returned %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if len(body) == 0 {
		return nil, errors.New("empty response")
	}
	return body, nil
}
