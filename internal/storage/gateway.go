package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flyvpn/flyvpn-tui/internal/state"
)

// Keys of the persisted records.
const (
	KeyLevel    = "flyvpn_level"
	KeyXP       = "flyvpn_xp"
	KeyStats    = "flyvpn_userStats"
	KeyBadges   = "flyvpn_unlockedBadges"
	KeyLogs     = "flyvpn_connection_logs"
	KeyLanguage = "flyvpn_language"
	KeyConfig   = "flyvpn_config"
)

// Gateway loads and saves the durable records on top of a KV store.
// Load functions never fail: absent or malformed data yields documented defaults.
type Gateway struct {
	kv  KV
	log *slog.Logger
}

// NewGateway wraps kv. A nil logger falls back to slog.Default().
func NewGateway(kv KV, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{kv: kv, log: logger.With("component", "storage")}
}

// ProgressionPatch selects which progression fields SaveProgression writes.
// Nil fields are left untouched in storage.
type ProgressionPatch struct {
	Level  *int
	XP     *int
	Stats  *state.Stats
	Badges *[]string
}

// FullPatch returns a patch covering every field of p.
func FullPatch(p state.Progression) ProgressionPatch {
	level, xp, stats, badges := p.Level, p.XP, p.Stats.Clone(), append([]string{}, p.UnlockedBadges...)
	return ProgressionPatch{Level: &level, XP: &xp, Stats: &stats, Badges: &badges}
}

// LoadProgression returns the stored progression or the default profile.
func (g *Gateway) LoadProgression() state.Progression {
	out := state.DefaultProgression()

	var (
		level  = 1
		xp     = 0
		stats  = state.DefaultStats()
		badges = []string{}
	)
	decoders := []struct {
		key  string
		into any
	}{
		{KeyLevel, &level},
		{KeyXP, &xp},
		{KeyStats, &stats},
		{KeyBadges, &badges},
	}
	for _, d := range decoders {
		if _, err := g.getJSON(d.key, d.into); err != nil {
			g.log.Warn("failed to load progression, using defaults", "key", d.key, "err", err)
			return out
		}
	}
	if level < 1 || xp < 0 {
		g.log.Warn("stored progression out of range, using defaults", "level", level, "xp", xp)
		return out
	}
	if badges == nil {
		badges = []string{}
	}

	out.Level = level
	out.XP = xp
	out.Stats = stats
	out.UnlockedBadges = dedupe(badges)
	return out
}

// SaveProgression writes only the fields present in patch. All fields are
// attempted; failures are logged and returned joined.
func (g *Gateway) SaveProgression(patch ProgressionPatch) error {
	var errs []error
	if patch.Level != nil {
		errs = append(errs, g.setJSON(KeyLevel, *patch.Level))
	}
	if patch.XP != nil {
		errs = append(errs, g.setJSON(KeyXP, *patch.XP))
	}
	if patch.Stats != nil {
		errs = append(errs, g.setJSON(KeyStats, *patch.Stats))
	}
	if patch.Badges != nil {
		badges := *patch.Badges
		if badges == nil {
			badges = []string{}
		}
		errs = append(errs, g.setJSON(KeyBadges, badges))
	}
	if err := errors.Join(errs...); err != nil {
		g.log.Error("failed to save progression", "err", err)
		return err
	}
	return nil
}

// LoadLogs returns the stored connection log. A corrupt record is cleared.
func (g *Gateway) LoadLogs() []state.LogEntry {
	var logs []state.LogEntry
	if _, err := g.getJSON(KeyLogs, &logs); err != nil {
		g.log.Warn("failed to load connection logs, clearing", "err", err)
		if delErr := g.kv.Delete(KeyLogs); delErr != nil {
			g.log.Error("failed to clear corrupt connection logs", "err", delErr)
		}
		return []state.LogEntry{}
	}
	if logs == nil {
		return []state.LogEntry{}
	}
	return logs
}

// SaveLogs replaces the stored connection log.
func (g *Gateway) SaveLogs(logs []state.LogEntry) error {
	if logs == nil {
		logs = []state.LogEntry{}
	}
	if err := g.setJSON(KeyLogs, logs); err != nil {
		g.log.Error("failed to save connection logs", "err", err)
		return err
	}
	return nil
}

// ClearLogs removes the stored connection log.
func (g *Gateway) ClearLogs() error {
	if err := g.kv.Delete(KeyLogs); err != nil {
		g.log.Error("failed to clear connection logs", "err", err)
		return err
	}
	return nil
}

// LoadLanguage returns the stored language code, or "" when none was saved.
func (g *Gateway) LoadLanguage() string {
	raw, err := g.kv.Get(KeyLanguage)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			g.log.Warn("failed to load language", "err", err)
		}
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// SaveLanguage stores the language code as plain text.
func (g *Gateway) SaveLanguage(lang string) error {
	if err := g.kv.Set(KeyLanguage, []byte(lang)); err != nil {
		g.log.Error("failed to save language", "err", err)
		return err
	}
	return nil
}

// LoadConfig returns the stored VPN configuration layered over defaults.
// The boolean reports whether a stored record was used.
func (g *Gateway) LoadConfig() (state.VPNConfig, bool) {
	cfg := state.DefaultConfig()
	found, err := g.getJSON(KeyConfig, &cfg)
	if err != nil {
		g.log.Warn("failed to load vpn config, using defaults", "err", err)
		return state.DefaultConfig(), false
	}
	return cfg, found
}

// SaveConfig stores the VPN configuration.
func (g *Gateway) SaveConfig(cfg state.VPNConfig) error {
	if err := g.setJSON(KeyConfig, cfg); err != nil {
		g.log.Error("failed to save vpn config", "err", err)
		return err
	}
	return nil
}

func (g *Gateway) getJSON(key string, into any) (bool, error) {
	raw, err := g.kv.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (g *Gateway) setJSON(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := g.kv.Set(key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
