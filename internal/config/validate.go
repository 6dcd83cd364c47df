package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/text/language"

	"github.com/flyvpn/flyvpn-tui/internal/intel"
)

// SupportedLanguages are the interface languages offered in settings, first is the fallback.
var SupportedLanguages = []language.Tag{
	language.English,
	language.German,
	language.Spanish,
	language.French,
	language.Japanese,
}

var languageMatcher = language.NewMatcher(SupportedLanguages)

// Validate reports every problem in cfg at once.
func Validate(cfg Config) error {
	var errs *multierror.Error

	if cfg.IntelListen != "" {
		if err := intel.ValidateListenAddr(cfg.IntelListen); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("intel_listen: %w", err))
		}
	}
	if cfg.APIListen != "" {
		if _, _, err := net.SplitHostPort(cfg.APIListen); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("api_listen: %w", err))
		}
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Storage)) {
	case "", StorageSQLite, StorageBolt, StorageMemory:
	default:
		errs = multierror.Append(errs, fmt.Errorf("storage: unknown backend %q", cfg.Storage))
	}
	if cfg.AdaptiveInterval < 0 {
		errs = multierror.Append(errs, fmt.Errorf("adaptive_interval must not be negative"))
	}
	t := cfg.Timings
	if t.Connect < 0 || t.Disconnect < 0 || t.Switch < 0 || t.Lookup < 0 {
		errs = multierror.Append(errs, fmt.Errorf("timings must not be negative"))
	}

	seen := make(map[string]struct{}, len(cfg.Servers))
	for idx, srv := range cfg.Servers {
		if strings.TrimSpace(srv.ID) == "" {
			errs = multierror.Append(errs, fmt.Errorf("servers[%d]: id is required", idx))
			continue
		}
		if _, dup := seen[srv.ID]; dup {
			errs = multierror.Append(errs, fmt.Errorf("servers[%d]: duplicate id %q", idx, srv.ID))
		}
		seen[srv.ID] = struct{}{}
		if v, ok := srv.LatencyValue(); ok && v < 0 {
			errs = multierror.Append(errs, fmt.Errorf("servers[%d]: latency must not be negative", idx))
		}
		if v, ok := srv.LoadValue(); ok && (v < 0 || v > 100) {
			errs = multierror.Append(errs, fmt.Errorf("servers[%d]: load must be within 0-100", idx))
		}
	}

	for name, raw := range map[string]string{"gateway_url": cfg.PublicNodes.GatewayURL, "relay_url": cfg.PublicNodes.RelayURL} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = multierror.Append(errs, fmt.Errorf("public_nodes.%s: %q is not an http(s) url", name, raw))
		}
	}
	if cfg.Simulator.Rate < 0 {
		errs = multierror.Append(errs, fmt.Errorf("simulator.rate must not be negative"))
	}
	if loc := cfg.Location; loc != nil {
		if loc.Lat < -90 || loc.Lat > 90 || loc.Lon < -180 || loc.Lon > 180 {
			errs = multierror.Append(errs, fmt.Errorf("location out of range: %v,%v", loc.Lat, loc.Lon))
		}
	}

	return errs.ErrorOrNil()
}

// NormalizeTheme maps free-form input to a known theme.
func NormalizeTheme(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case ThemeDark:
		return ThemeDark
	case ThemeLight:
		return ThemeLight
	default:
		return ThemeAuto
	}
}

// NormalizeStorage maps free-form input to a storage backend name.
func NormalizeStorage(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case StorageBolt:
		return StorageBolt
	case StorageMemory:
		return StorageMemory
	default:
		return StorageSQLite
	}
}

// NormalizeLogLevel maps free-form input to debug, info, warn or error.
func NormalizeLogLevel(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return "debug"
	case "warn", "warning":
		return "warn"
	case "error":
		return "error"
	default:
		return "info"
	}
}

// NormalizeLanguage returns the closest supported language code, or "en".
func NormalizeLanguage(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return SupportedLanguages[0].String()
	}
	tag, err := language.Parse(value)
	if err != nil {
		return SupportedLanguages[0].String()
	}
	_, idx, conf := languageMatcher.Match(tag)
	if conf == language.No {
		return SupportedLanguages[0].String()
	}
	return SupportedLanguages[idx].String()
}

// Normalize applies every normalizer to cfg.
func Normalize(cfg Config) Config {
	cfg.Theme = NormalizeTheme(cfg.Theme)
	cfg.Language = NormalizeLanguage(cfg.Language)
	cfg.Storage = NormalizeStorage(cfg.Storage)
	cfg.LogLevel = NormalizeLogLevel(cfg.LogLevel)
	if cfg.AdaptiveInterval == 0 {
		cfg.AdaptiveInterval = DefaultAdaptiveInterval
	}
	if cfg.Simulator.Rate == 0 {
		cfg.Simulator.Rate = DefaultSimulatorRate
	}
	return cfg
}
