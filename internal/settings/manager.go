package settings

import (
	"fmt"
	"sync"

	"github.com/flyvpn/flyvpn-tui/internal/config"
	"github.com/flyvpn/flyvpn-tui/internal/state"
)

// LanguageStore mirrors the language choice into durable storage.
type LanguageStore interface {
	SaveLanguage(lang string) error
}

// Manager persists user-facing settings to disk.
type Manager struct {
	path      string
	mu        sync.Mutex
	cfg       config.Config
	store     *state.Store
	languages LanguageStore
}

// NewManager returns a manager initialized with the current configuration snapshot.
// store and languages may be nil.
func NewManager(path string, cfg config.Config, store *state.Store, languages LanguageStore) *Manager {
	return &Manager{path: path, cfg: cfg, store: store, languages: languages}
}

// SetTheme stores the normalized theme and writes it to disk.
func (m *Manager) SetTheme(name string) (string, error) {
	normalized := config.NormalizeTheme(name)
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cfg.Theme = normalized
	if err := config.Save(m.path, m.cfg); err != nil {
		return "", err
	}
	return normalized, nil
}

// SetLanguage stores the closest supported language. The config file and the
// language record are both written; the first failure is returned.
func (m *Manager) SetLanguage(code string) (string, error) {
	normalized := config.NormalizeLanguage(code)
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cfg.Language = normalized
	if m.store != nil {
		m.store.SetLanguage(normalized)
	}
	if err := config.Save(m.path, m.cfg); err != nil {
		return "", err
	}
	if m.languages != nil {
		if err := m.languages.SaveLanguage(normalized); err != nil {
			return "", fmt.Errorf("save language: %w", err)
		}
	}
	return normalized, nil
}

// Config returns a copy of the managed config.
func (m *Manager) Config() config.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}
