package controller

import (
	"context"
	"io"

	"github.com/flyvpn/flyvpn-tui/internal/progression"
	"github.com/flyvpn/flyvpn-tui/internal/state"
)

// ConnectionManager drives the tunnel lifecycle.
type ConnectionManager interface {
	Toggle(ctx context.Context) error
	SelectServerByID(ctx context.Context, id string) error
}

// ConfigManager applies keyed VPN configuration updates.
type ConfigManager interface {
	Update(key string, value any) (state.VPNConfig, error)
}

// LogManager exposes the retained connection log.
type LogManager interface {
	Entries() []state.LogEntry
	Clear() error
	Export(w io.Writer) error
}

// IntelManager resolves pending threats.
type IntelManager interface {
	NeutralizeThreat(id string) (progression.Result, error)
	// Neutralize accepts a pending threat id or a free-form category.
	Neutralize(ref string) (progression.Result, error)
}

// PoolManager refreshes the server pool.
type PoolManager interface {
	Refresh(ctx context.Context, store *state.Store) []state.Server
}

// SettingsManager persists UI configuration choices.
type SettingsManager interface {
	SetTheme(name string) (string, error)
	SetLanguage(code string) (string, error)
}
