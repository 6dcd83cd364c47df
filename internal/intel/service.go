// Package intel is the threat event source: a simulator that raises fake
// threats and a gRPC surface that lets external tools report neutralizations.
package intel

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/VictoriaMetrics/metrics"

	"github.com/flyvpn/flyvpn-tui/internal/progression"
	"github.com/flyvpn/flyvpn-tui/internal/state"
)

var (
	// ErrEmptyCategory is returned when a neutralization names no category.
	ErrEmptyCategory = errors.New("threat category is empty")
	// ErrUnknownThreat is returned when a threat id is not pending.
	ErrUnknownThreat = errors.New("threat not found")
)

var ingestTotal = metrics.NewCounter("flyvpn_intel_neutralizations_total")

// Engine is the progression surface the intel service reports into.
type Engine interface {
	RecordNeutralization(category string) progression.Result
	Snapshot() state.Progression
}

// Service turns threat events into progression updates.
type Service struct {
	store  *state.Store
	engine Engine
	log    *slog.Logger
}

// NewService wires the pending threat list in store to engine.
func NewService(store *state.Store, engine Engine, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, engine: engine, log: logger.With("component", "intel")}
}

// Neutralize handles ref as a pending threat id when one matches, otherwise
// as a free-form threat category.
func (s *Service) Neutralize(ref string) (progression.Result, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return progression.Result{}, ErrEmptyCategory
	}
	if threat, ok := s.store.RemoveThreat(ref); ok {
		return s.record(threat.Category, threat.ID), nil
	}
	return s.record(ref, ""), nil
}

// NeutralizeThreat removes a pending threat and credits its category.
func (s *Service) NeutralizeThreat(id string) (progression.Result, error) {
	threat, ok := s.store.RemoveThreat(id)
	if !ok {
		return progression.Result{}, fmt.Errorf("%w: %s", ErrUnknownThreat, id)
	}
	return s.record(threat.Category, threat.ID), nil
}

// Progress returns the current progression.
func (s *Service) Progress() state.Progression {
	return s.engine.Snapshot()
}

func (s *Service) record(category, threatID string) progression.Result {
	res := s.engine.RecordNeutralization(category)
	ingestTotal.Inc()
	s.log.Info("threat neutralized", "category", category, "threat", threatID, "level", res.Level, "badges", res.NewBadges)
	return res
}
