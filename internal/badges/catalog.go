// Package badges holds the read-only achievement catalog. Every badge is a
// declarative definition whose unlock predicate is built by a single factory
// from threshold rules over state.Stats.
package badges

import (
	"fmt"
	"strings"
	"sync"

	"github.com/flyvpn/flyvpn-tui/internal/state"
)

// CatalogSize is the number of badges in the default catalog.
const CatalogSize = 200

// Icon selects the glyph a badge is drawn with.
type Icon int

const (
	IconShield Icon = iota
	IconTarget
	IconBug
	IconSkull
	IconBolt
	IconStar
	IconCrown
	IconEye
	IconGlobe
	IconLock
	iconCount
)

var glyphs = [iconCount]string{"⛨", "◎", "✱", "☠", "ϟ", "★", "♛", "◉", "◍", "◆"}

// Glyph returns the single-cell symbol drawn for the icon.
func (i Icon) Glyph() string {
	if i < 0 || i >= iconCount {
		return "•"
	}
	return glyphs[i]
}

// Colors is the badge accent palette, indexed by Definition.Color.
var Colors = []string{"#67e8f9", "#a78bfa", "#f472b6", "#4ade80", "#facc15", "#fb923c", "#f87171"}

// Metric is the stats counter a rule reads.
type Metric int

const (
	MetricTotal Metric = iota
	MetricLevel
	MetricCategory
)

// Rule is satisfied when the selected counter reaches Threshold.
type Rule struct {
	Metric    Metric
	Category  string
	Threshold int
}

// Total requires at least n neutralizations.
func Total(n int) Rule { return Rule{Metric: MetricTotal, Threshold: n} }

// Level requires at least level n.
func Level(n int) Rule { return Rule{Metric: MetricLevel, Threshold: n} }

// Category requires at least n neutralizations of one category.
func Category(category string, n int) Rule {
	return Rule{Metric: MetricCategory, Category: state.NormalizeCategory(category), Threshold: n}
}

func (r Rule) satisfied(stats state.Stats) bool {
	switch r.Metric {
	case MetricTotal:
		return stats.TotalNeutralized >= r.Threshold
	case MetricLevel:
		return stats.Level >= r.Threshold
	case MetricCategory:
		return stats.Count(r.Category) >= r.Threshold
	}
	return false
}

// Definition is one catalog row. A definition with no rules never unlocks.
type Definition struct {
	ID          string
	Name        string
	Description string
	Icon        Icon
	Color       int
	Rules       []Rule
}

// Badge is a catalog entry with its compiled predicate.
type Badge struct {
	Definition
	unlocked func(state.Stats) bool
}

// Unlocked reports whether stats satisfy the badge. It is a pure function of stats.
func (b Badge) Unlocked(stats state.Stats) bool {
	return b.unlocked(stats)
}

// ColorHex returns the badge accent color.
func (b Badge) ColorHex() string {
	return Colors[b.Color%len(Colors)]
}

// Predicate compiles rules into an unlock predicate: every rule must hold.
func Predicate(rules []Rule) func(state.Stats) bool {
	if len(rules) == 0 {
		return func(state.Stats) bool { return false }
	}
	compiled := append([]Rule(nil), rules...)
	return func(stats state.Stats) bool {
		for _, r := range compiled {
			if !r.satisfied(stats) {
				return false
			}
		}
		return true
	}
}

// Catalog is an ordered, id-unique badge registry.
type Catalog struct {
	badges []Badge
	index  map[string]int
}

// NewCatalog compiles defs in order. On an id collision the first definition wins.
func NewCatalog(defs []Definition) *Catalog {
	c := &Catalog{index: make(map[string]int, len(defs))}
	for _, def := range defs {
		c.add(def)
	}
	return c
}

func (c *Catalog) add(def Definition) bool {
	if _, exists := c.index[def.ID]; exists {
		return false
	}
	c.index[def.ID] = len(c.badges)
	c.badges = append(c.badges, Badge{Definition: def, unlocked: Predicate(def.Rules)})
	return true
}

// All returns the badges in catalog order.
func (c *Catalog) All() []Badge {
	out := make([]Badge, len(c.badges))
	copy(out, c.badges)
	return out
}

// Len returns the number of badges.
func (c *Catalog) Len() int { return len(c.badges) }

// Lookup returns a badge by id.
func (c *Catalog) Lookup(id string) (Badge, bool) {
	idx, ok := c.index[id]
	if !ok {
		return Badge{}, false
	}
	return c.badges[idx], true
}

// Evaluate returns the ids, in catalog order, of badges that stats satisfy
// and that are not yet in unlocked.
func (c *Catalog) Evaluate(stats state.Stats, unlocked []string) []string {
	have := make(map[string]struct{}, len(unlocked))
	for _, id := range unlocked {
		have[id] = struct{}{}
	}
	var fresh []string
	for _, b := range c.badges {
		if _, ok := have[b.ID]; ok {
			continue
		}
		if b.Unlocked(stats) {
			fresh = append(fresh, b.ID)
		}
	}
	return fresh
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c := NewCatalog(Definitions())
	for i := 0; c.Len() < CatalogSize; i++ {
		c.add(filler(i))
	}
	return c
})

// Default returns the shared catalog, built on first use.
func Default() *Catalog {
	return defaultCatalog()
}

// Definitions returns the catalog rows before filler padding.
func Definitions() []Definition {
	defs := append([]Definition(nil), handAuthored...)
	for i, threat := range slayerThreats {
		for j, count := range slayerCounts {
			defs = append(defs, Definition{
				ID:          fmt.Sprintf("%s%d", strings.ToLower(threat), count),
				Name:        fmt.Sprintf("%s Slayer %d", threat, count),
				Description: fmt.Sprintf("Neutralize %d %s threats.", count, threat),
				Icon:        Icon((i + j) % int(iconCount)),
				Color:       (i*2 + j) % len(Colors),
				Rules:       []Rule{Category(threat, count)},
			})
		}
	}
	for i, count := range operatorCounts {
		defs = append(defs, Definition{
			ID:          fmt.Sprintf("n%d", count),
			Name:        fmt.Sprintf("Operator %d", count),
			Description: fmt.Sprintf("Neutralize %d total threats.", count),
			Icon:        Icon(i % 3),
			Color:       ((6-i)%len(Colors) + len(Colors)) % len(Colors),
			Rules:       []Rule{Total(count)},
		})
	}
	for i, lvl := range rankLevels {
		defs = append(defs, Definition{
			ID:          fmt.Sprintf("lvl%d", lvl),
			Name:        fmt.Sprintf("Rank %d", lvl),
			Description: fmt.Sprintf("Reach Level %d.", lvl),
			Icon:        IconStar,
			Color:       i % len(Colors),
			Rules:       []Rule{Level(lvl)},
		})
	}
	return append(defs, composites...)
}

func filler(i int) Definition {
	count := 1000 + i*50
	return Definition{
		ID:          fmt.Sprintf("filler_%d", i),
		Name:        fmt.Sprintf("Veteran %d", i+1),
		Description: fmt.Sprintf("Neutralize %d threats.", count),
		Icon:        Icon(i % int(iconCount)),
		Color:       i % len(Colors),
		Rules:       []Rule{Total(count)},
	}
}
