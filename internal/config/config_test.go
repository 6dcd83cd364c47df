package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-multierror"

	"github.com/flyvpn/flyvpn-tui/internal/state"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("unexpected default (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsUnreadableAndMalformed(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error reading a directory")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("theme: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
theme: light
storage: bolt
adaptive_interval: 10s
timings:
  connect: 100ms
servers:
  - id: ch-zrh
    city: Zurich
    country: Switzerland
    address: 185.159.157.10
    latency: 24
    tier: optimized
location:
  lat: 47.37
  lon: 8.54
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Theme != ThemeLight || cfg.Storage != StorageBolt || cfg.AdaptiveInterval != 10*time.Second {
		t.Fatalf("unexpected scalar fields %+v", cfg)
	}
	if cfg.Timings.Connect != 100*time.Millisecond || cfg.Timings.Disconnect != 500*time.Millisecond {
		t.Fatalf("expected partial timings over defaults, got %+v", cfg.Timings)
	}
	if len(cfg.Servers) != 1 || cfg.Servers[0].Tier != state.TierOptimized || *cfg.Servers[0].Latency != 24 {
		t.Fatalf("unexpected servers %+v", cfg.Servers)
	}
	if cfg.Servers[0].Load != nil {
		t.Fatalf("unset load must stay unknown")
	}
	if cfg.Location == nil || cfg.Location.Lat != 47.37 {
		t.Fatalf("unexpected location %+v", cfg.Location)
	}
	if cfg.IntelListen != DefaultIntelListen {
		t.Fatalf("expected default intel listen, got %q", cfg.IntelListen)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Theme = ThemeDark
	cfg.Language = "de"
	cfg.APIListen = "127.0.0.1:8089"
	cfg.Servers = []state.Server{{ID: "a", City: "A", Address: "1.1.1.1", Load: state.IntPtr(10)}}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, got %d entries", len(entries))
	}
}

func TestValidateAcceptsDefault(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("expected valid default, got %v", err)
	}
}

func TestValidateAggregatesProblems(t *testing.T) {
	cfg := Default()
	cfg.IntelListen = "localhost"
	cfg.APIListen = "nope"
	cfg.Storage = "postgres"
	cfg.Timings.Switch = -time.Second
	cfg.Servers = []state.Server{
		{ID: "a", Load: state.IntPtr(101)},
		{ID: "a", Latency: state.IntPtr(-1)},
		{ID: " "},
	}
	cfg.PublicNodes.RelayURL = "ftp://example.com"
	cfg.Location = &state.Location{Lat: 91}

	err := Validate(cfg)
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	merr, ok := err.(*multierror.Error)
	if !ok {
		t.Fatalf("expected *multierror.Error, got %T", err)
	}
	if len(merr.Errors) != 10 {
		t.Fatalf("expected 10 problems, got %d: %v", len(merr.Errors), err)
	}
	for _, want := range []string{"intel_listen", "api_listen", "storage", "timings", "duplicate id", "relay_url", "location"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestNormalizers(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{"theme upper", NormalizeTheme, " DARK ", ThemeDark},
		{"theme unknown", NormalizeTheme, "dawn", ThemeAuto},
		{"storage bolt", NormalizeStorage, "Bolt", StorageBolt},
		{"storage unknown", NormalizeStorage, "", StorageSQLite},
		{"log warning", NormalizeLogLevel, "WARNING", "warn"},
		{"log unknown", NormalizeLogLevel, "trace", "info"},
		{"lang region", NormalizeLanguage, "de-CH", "de"},
		{"lang upper", NormalizeLanguage, "FR", "fr"},
		{"lang unsupported", NormalizeLanguage, "sw", "en"},
		{"lang garbage", NormalizeLanguage, "!!", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
