package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flyvpn/flyvpn-tui/internal/state"
)

const (
	ThemeAuto  = "auto"
	ThemeDark  = "dark"
	ThemeLight = "light"
)

const (
	StorageSQLite = "sqlite"
	StorageBolt   = "bolt"
	StorageMemory = "memory"
)

const (
	DefaultIntelListen      = "127.0.0.1:50061"
	DefaultAdaptiveInterval = 30 * time.Second
	DefaultSimulatorRate    = 3500 * time.Millisecond
)

// Config captures persisted user preferences and the runtime wiring of the client.
type Config struct {
	Theme            string          `yaml:"theme"`
	Language         string          `yaml:"language"`
	DataDir          string          `yaml:"data_dir"`
	Storage          string          `yaml:"storage"`
	LogFile          string          `yaml:"log_file"`
	LogLevel         string          `yaml:"log_level"`
	IntelListen      string          `yaml:"intel_listen"`
	APIListen        string          `yaml:"api_listen"`
	AdaptiveInterval time.Duration   `yaml:"adaptive_interval"`
	Timings          Timings         `yaml:"timings"`
	Servers          []state.Server  `yaml:"servers"`
	PublicNodes      PublicNodes     `yaml:"public_nodes"`
	Simulator        Simulator       `yaml:"simulator"`
	Location         *state.Location `yaml:"location,omitempty"`
}

// Timings are the simulated tunnel operation latencies.
type Timings struct {
	Connect    time.Duration `yaml:"connect"`
	Disconnect time.Duration `yaml:"disconnect"`
	Switch     time.Duration `yaml:"switch"`
	Lookup     time.Duration `yaml:"lookup"`
}

// PublicNodes toggles the optional public server providers.
type PublicNodes struct {
	Enabled    bool          `yaml:"enabled"`
	GatewayURL string        `yaml:"gateway_url"`
	RelayURL   string        `yaml:"relay_url"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// Simulator controls the fake threat feed.
type Simulator struct {
	Enabled bool          `yaml:"enabled"`
	Rate    time.Duration `yaml:"rate"`
	// AutoNeutralize resolves raised threats after this delay; zero leaves them pending.
	AutoNeutralize time.Duration `yaml:"auto_neutralize"`
}

// Load reads configuration data from the provided path. If the file does not exist,
// a default configuration is returned without an error.
func Load(path string) (Config, error) {
	cfg := Default()

	resolved, err := resolvePath(path)
	if err != nil {
		return cfg, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

// Save writes cfg to path atomically with owner-only permissions.
func Save(path string, cfg Config) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close config: %w", err)
	}
	if err := os.Rename(tmpName, resolved); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// Default returns a usable configuration when no file exists yet.
func Default() Config {
	return Config{
		Theme:            ThemeAuto,
		Language:         "en",
		Storage:          StorageSQLite,
		LogLevel:         "info",
		IntelListen:      DefaultIntelListen,
		AdaptiveInterval: DefaultAdaptiveInterval,
		Timings: Timings{
			Connect:    2500 * time.Millisecond,
			Disconnect: 500 * time.Millisecond,
			Switch:     1200 * time.Millisecond,
			Lookup:     1500 * time.Millisecond,
		},
		Servers: []state.Server{},
		Simulator: Simulator{
			Enabled: true,
			Rate:    DefaultSimulatorRate,
		},
	}
}

// DefaultPath returns the standard configuration path within the user's
// XDG config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, "flyvpn-tui", "config.yaml"), nil
}

// ResolvePath returns path or the default location when it is empty.
func ResolvePath(path string) (string, error) {
	return resolvePath(path)
}

// ResolveDataDir returns the configured data directory or the XDG state location.
func ResolveDataDir(cfg Config) (string, error) {
	if cfg.DataDir != "" {
		return cfg.DataDir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("user cache dir: %w", err)
	}
	return filepath.Join(dir, "flyvpn-tui"), nil
}

func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return DefaultPath()
}
