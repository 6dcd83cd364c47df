// Package progression applies XP awards, level rollover and badge unlocks.
package progression

import (
	"log/slog"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/flyvpn/flyvpn-tui/internal/badges"
	"github.com/flyvpn/flyvpn-tui/internal/state"
	"github.com/flyvpn/flyvpn-tui/internal/storage"
)

// XPPerNeutralization is the award for handling one threat.
const XPPerNeutralization = 10

// DefaultGainTTL is how long an XP gain notification stays visible.
const DefaultGainTTL = time.Second

var (
	neutralizedTotal = metrics.NewCounter("flyvpn_progression_neutralized_total")
	levelUpsTotal    = metrics.NewCounter("flyvpn_progression_level_ups_total")
	badgesTotal      = metrics.NewCounter("flyvpn_progression_badges_unlocked_total")
)

// Persister writes progression fields. *storage.Gateway satisfies it.
type Persister interface {
	SaveProgression(storage.ProgressionPatch) error
}

// Options configures an Engine.
type Options struct {
	Store     *state.Store
	Catalog   *badges.Catalog
	Persister Persister
	// GainTTL controls XP gain expiry; zero uses DefaultGainTTL, negative keeps gains.
	GainTTL time.Duration
	Now     func() time.Time
	Logger  *slog.Logger
}

// Result describes the outcome of one neutralization.
type Result struct {
	Level     int      `json:"level"`
	XP        int      `json:"xp"`
	Total     int      `json:"total"`
	LevelUps  int      `json:"levelUps"`
	NewBadges []string `json:"newBadges"`
}

// Engine owns the progression state. All methods are safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	current  state.Progression
	nextGain int64

	store     *state.Store
	catalog   *badges.Catalog
	persister Persister
	gainTTL   time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// New starts from initial, normalizing level and xp so xp is below the
// threshold of the current level.
func New(initial state.Progression, opts Options) *Engine {
	e := &Engine{
		store:     opts.Store,
		catalog:   opts.Catalog,
		persister: opts.Persister,
		gainTTL:   opts.GainTTL,
		now:       opts.Now,
		log:       opts.Logger,
	}
	if e.catalog == nil {
		e.catalog = badges.Default()
	}
	if e.gainTTL == 0 {
		e.gainTTL = DefaultGainTTL
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = slog.Default()
	}

	p := initial
	if initial.Stats.Categories == nil {
		p.Stats = state.DefaultStats()
	} else {
		p.Stats = initial.Stats.Clone()
	}
	p.UnlockedBadges = append([]string{}, initial.UnlockedBadges...)
	p.Level, p.XP, _ = Rollover(p.Level, p.XP)
	e.current = p
	e.publishLocked()
	return e
}

// Rollover normalizes level and xp, returning the number of levels gained.
// The threshold is recomputed from the current level on every iteration.
func Rollover(level, xp int) (int, int, int) {
	if level < 1 {
		level = 1
	}
	if xp < 0 {
		xp = 0
	}
	gained := 0
	for xp >= state.XPForNextLevel(level) {
		xp -= state.XPForNextLevel(level)
		level++
		gained++
	}
	return level, xp, gained
}

// Snapshot returns a copy of the current progression.
func (e *Engine) Snapshot() state.Progression {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copyLocked()
}

// XPForNextLevel returns the xp threshold of the current level.
func (e *Engine) XPForNextLevel() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return state.XPForNextLevel(e.current.Level)
}

// AwardXP adds amount and applies every level rollover it causes. It returns
// the number of levels gained. Non-positive amounts are ignored.
func (e *Engine) AwardXP(amount int) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	gained := e.awardLocked(amount)
	if amount > 0 {
		level, xp := e.current.Level, e.current.XP
		e.save(storage.ProgressionPatch{Level: &level, XP: &xp})
		e.publishLocked()
	}
	return gained
}

// RecordNeutralization counts a handled threat of the given category, awards
// XP and evaluates badges. Categories are bucketed case-insensitively.
func (e *Engine) RecordNeutralization(category string) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := state.NormalizeCategory(category)
	e.current.Stats.TotalNeutralized++
	e.current.Stats.Categories[key]++

	gained := e.awardLocked(XPPerNeutralization)
	e.current.Stats.Level = e.current.Level
	fresh := e.evaluateLocked()

	level, xp, stats := e.current.Level, e.current.XP, e.current.Stats.Clone()
	e.save(storage.ProgressionPatch{Level: &level, XP: &xp, Stats: &stats})
	neutralizedTotal.Inc()
	e.log.Debug("threat neutralized", "category", key, "level", level, "xp", xp, "badges", fresh)

	e.addGainLocked(XPPerNeutralization)
	e.publishLocked()

	return Result{
		Level:     level,
		XP:        xp,
		Total:     stats.TotalNeutralized,
		LevelUps:  gained,
		NewBadges: fresh,
	}
}

// EvaluateBadgeUnlocks unlocks every badge the current stats satisfy and
// returns the newly unlocked ids. Unlocks are never revoked.
func (e *Engine) EvaluateBadgeUnlocks() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	fresh := e.evaluateLocked()
	if len(fresh) > 0 {
		e.publishLocked()
	}
	return fresh
}

func (e *Engine) awardLocked(amount int) int {
	if amount <= 0 {
		return 0
	}
	level, xp, gained := Rollover(e.current.Level, e.current.XP+amount)
	e.current.Level, e.current.XP = level, xp
	if gained > 0 {
		levelUpsTotal.Add(gained)
		e.log.Info("level up", "level", level)
	}
	return gained
}

// evaluateLocked persists the unlocked set only when it grew.
func (e *Engine) evaluateLocked() []string {
	fresh := e.catalog.Evaluate(e.current.Stats, e.current.UnlockedBadges)
	if len(fresh) == 0 {
		return nil
	}
	e.current.UnlockedBadges = append(e.current.UnlockedBadges, fresh...)
	badgesTotal.Add(len(fresh))
	unlocked := append([]string{}, e.current.UnlockedBadges...)
	e.save(storage.ProgressionPatch{Badges: &unlocked})
	e.log.Info("badges unlocked", "ids", fresh)
	return fresh
}

func (e *Engine) save(patch storage.ProgressionPatch) {
	if e.persister == nil {
		return
	}
	if err := e.persister.SaveProgression(patch); err != nil {
		e.log.Warn("progression not persisted", "err", err)
	}
}

func (e *Engine) addGainLocked(amount int) {
	if e.store == nil {
		return
	}
	e.nextGain++
	gain := state.XPGain{ID: e.nextGain, Amount: amount, At: e.now()}
	e.store.AddXPGain(gain)
	if e.gainTTL > 0 {
		store := e.store
		time.AfterFunc(e.gainTTL, func() { store.ExpireXPGain(gain.ID) })
	}
}

func (e *Engine) publishLocked() {
	if e.store != nil {
		e.store.SetProgression(e.copyLocked())
	}
}

func (e *Engine) copyLocked() state.Progression {
	out := e.current
	out.Stats = e.current.Stats.Clone()
	out.UnlockedBadges = append([]string{}, e.current.UnlockedBadges...)
	return out
}
