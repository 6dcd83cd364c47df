package vpn

import (
	"log/slog"

	"github.com/flyvpn/flyvpn-tui/internal/state"
)

// ConfigPersister stores the VPN configuration between runs.
type ConfigPersister interface {
	SaveConfig(state.VPNConfig) error
}

// ConfigService is the single keyed-update path for the VPN configuration.
type ConfigService struct {
	store     *state.Store
	persister ConfigPersister
	log       *slog.Logger
}

// NewConfigService binds the configuration held in store to persister.
// A nil persister keeps the configuration in memory only.
func NewConfigService(store *state.Store, persister ConfigPersister, logger *slog.Logger) *ConfigService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigService{store: store, persister: persister, log: logger}
}

// Config returns the current configuration.
func (c *ConfigService) Config() state.VPNConfig {
	return c.store.Config()
}

// Update sets key to value. Type mismatches and unknown keys leave the
// configuration untouched. A persistence failure is logged but the in-memory
// update stands.
func (c *ConfigService) Update(key string, value any) (state.VPNConfig, error) {
	cfg, err := c.store.UpdateConfig(func(cfg *state.VPNConfig) error {
		return cfg.Set(key, value)
	})
	if err != nil {
		return cfg, err
	}
	c.log.Debug("vpn config updated", "key", key, "value", value)
	if c.persister != nil {
		if err := c.persister.SaveConfig(cfg); err != nil {
			c.log.Warn("vpn config not persisted", "key", key, "err", err)
		}
	}
	return cfg, nil
}
