package progression

import (
	"errors"
	"testing"

	"github.com/flyvpn/flyvpn-tui/internal/state"
	"github.com/flyvpn/flyvpn-tui/internal/storage"
)

type patchLog struct {
	patches []storage.ProgressionPatch
	err     error
}

func (p *patchLog) SaveProgression(patch storage.ProgressionPatch) error {
	p.patches = append(p.patches, patch)
	return p.err
}

func start(level, xp int) state.Progression {
	p := state.DefaultProgression()
	p.Level, p.XP = level, xp
	return p
}

func TestAwardXPRollsOverLevel(t *testing.T) {
	e := New(start(1, 95), Options{GainTTL: -1})
	if gained := e.AwardXP(10); gained != 1 {
		t.Fatalf("expected one level up, got %d", gained)
	}
	got := e.Snapshot()
	if got.Level != 2 || got.XP != 5 {
		t.Fatalf("expected level 2 xp 5, got level %d xp %d", got.Level, got.XP)
	}
}

func TestAwardXPMultiLevelRollover(t *testing.T) {
	e := New(start(1, 0), Options{GainTTL: -1})
	// 100 (level 1) + 200 (level 2) + 50 leftover
	if gained := e.AwardXP(350); gained != 2 {
		t.Fatalf("expected two level ups, got %d", gained)
	}
	got := e.Snapshot()
	if got.Level != 3 || got.XP != 50 {
		t.Fatalf("expected level 3 xp 50, got %d/%d", got.Level, got.XP)
	}
	if e.XPForNextLevel() != 300 {
		t.Fatalf("expected threshold 300, got %d", e.XPForNextLevel())
	}
}

func TestAwardXPIsAssociative(t *testing.T) {
	for level := 1; level <= 4; level++ {
		for xp := 0; xp < state.XPForNextLevel(level); xp += 7 {
			for _, split := range [][2]int{{10, 10}, {5, 15}, {90, 230}, {1, 399}} {
				a := New(start(level, xp), Options{GainTTL: -1})
				a.AwardXP(split[0])
				a.AwardXP(split[1])

				b := New(start(level, xp), Options{GainTTL: -1})
				b.AwardXP(split[0] + split[1])

				sa, sb := a.Snapshot(), b.Snapshot()
				if sa.Level != sb.Level || sa.XP != sb.XP {
					t.Fatalf("start %d/%d split %v: %d/%d vs %d/%d", level, xp, split, sa.Level, sa.XP, sb.Level, sb.XP)
				}
			}
		}
	}
}

func TestAwardXPIgnoresNonPositive(t *testing.T) {
	sink := &patchLog{}
	e := New(start(2, 40), Options{Persister: sink, GainTTL: -1})
	e.AwardXP(0)
	e.AwardXP(-50)
	if got := e.Snapshot(); got.Level != 2 || got.XP != 40 {
		t.Fatalf("expected unchanged progression, got %d/%d", got.Level, got.XP)
	}
	if len(sink.patches) != 0 {
		t.Fatalf("expected no writes, got %d", len(sink.patches))
	}
}

func TestNewNormalizesLoadedState(t *testing.T) {
	e := New(state.Progression{Level: 0, XP: 250}, Options{GainTTL: -1})
	got := e.Snapshot()
	if got.Level != 2 || got.XP != 150 {
		t.Fatalf("expected level 2 xp 150, got %d/%d", got.Level, got.XP)
	}
	if got.Stats.Categories == nil || got.UnlockedBadges == nil {
		t.Fatalf("expected initialized stats and badges")
	}
}

func TestRecordNeutralization(t *testing.T) {
	store := state.NewStore()
	sink := &patchLog{}
	e := New(start(1, 95), Options{Store: store, Persister: sink, GainTTL: -1})

	res := e.RecordNeutralization("Malware")

	if res.Level != 2 || res.XP != 5 || res.Total != 1 || res.LevelUps != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	got := e.Snapshot()
	if got.Stats.Count("malware") != 1 || got.Stats.TotalNeutralized != 1 {
		t.Fatalf("unexpected stats %+v", got.Stats)
	}
	if got.Stats.Level != 2 {
		t.Fatalf("stats level must follow the post-award level, got %d", got.Stats.Level)
	}
	want := map[string]bool{"n1": true, "lvl2": true}
	if len(res.NewBadges) != len(want) {
		t.Fatalf("expected badges %v, got %v", want, res.NewBadges)
	}
	for _, id := range res.NewBadges {
		if !want[id] {
			t.Fatalf("unexpected badge %q", id)
		}
	}

	snap := store.Snapshot()
	if snap.Progression.Level != 2 || len(snap.XPGains) != 1 || snap.XPGains[0].Amount != XPPerNeutralization {
		t.Fatalf("store not updated: %+v", snap.Progression)
	}

	var sawBadges, sawStats bool
	for _, p := range sink.patches {
		if p.Badges != nil {
			sawBadges = true
		}
		if p.Stats != nil && p.Level != nil && p.XP != nil {
			sawStats = *p.Level == 2 && *p.XP == 5 && p.Stats.TotalNeutralized == 1
		}
	}
	if !sawBadges || !sawStats {
		t.Fatalf("expected badge and progression writes, got %+v", sink.patches)
	}
}

func TestRecordNeutralizationBucketsCategories(t *testing.T) {
	e := New(state.DefaultProgression(), Options{GainTTL: -1})
	e.RecordNeutralization("DDoS")
	e.RecordNeutralization("ddos")
	e.RecordNeutralization(" Ransomware ")
	e.RecordNeutralization("")

	stats := e.Snapshot().Stats
	if stats.Count("ddos") != 2 || stats.Count("ransomware") != 1 || stats.Count(state.CategoryOther) != 1 {
		t.Fatalf("unexpected buckets %+v", stats.Categories)
	}
	if stats.TotalNeutralized != 4 {
		t.Fatalf("expected total 4, got %d", stats.TotalNeutralized)
	}
}

func TestBadgeUnlocksAreMonotonicAndPersistedOnChange(t *testing.T) {
	sink := &patchLog{}
	initial := state.DefaultProgression()
	initial.UnlockedBadges = []string{"king"}
	e := New(initial, Options{Persister: sink, GainTTL: -1})

	if fresh := e.EvaluateBadgeUnlocks(); len(fresh) != 0 {
		t.Fatalf("nothing should unlock from zero stats, got %v", fresh)
	}
	if len(sink.patches) != 0 {
		t.Fatalf("unchanged set must not be persisted")
	}

	for i := 0; i < 12; i++ {
		e.RecordNeutralization(state.CategoryPhishing)
	}
	unlocked := e.Snapshot().UnlockedBadges
	if unlocked[0] != "king" {
		t.Fatalf("previously unlocked badge was revoked: %v", unlocked)
	}
	seen := map[string]int{}
	for _, id := range unlocked {
		seen[id]++
	}
	for _, id := range []string{"n1", "n10", "phish10", "lvl2"} {
		if seen[id] != 1 {
			t.Fatalf("expected %s exactly once, got %d (%v)", id, seen[id], unlocked)
		}
	}

	before := len(sink.patches)
	if fresh := e.EvaluateBadgeUnlocks(); len(fresh) != 0 {
		t.Fatalf("re-evaluation must be idempotent, got %v", fresh)
	}
	if len(sink.patches) != before {
		t.Fatalf("re-evaluation must not persist")
	}
}

func TestPersistFailureKeepsProgress(t *testing.T) {
	e := New(state.DefaultProgression(), Options{Persister: &patchLog{err: errors.New("disk full")}, GainTTL: -1})
	e.RecordNeutralization(state.CategoryAdware)
	if got := e.Snapshot(); got.XP != XPPerNeutralization || got.Stats.TotalNeutralized != 1 {
		t.Fatalf("in-memory progress must survive write failures, got %+v", got)
	}
}

func TestRollover(t *testing.T) {
	cases := []struct{ level, xp, wantLevel, wantXP, wantGained int }{
		{1, 0, 1, 0, 0},
		{1, 100, 2, 0, 1},
		{1, 299, 2, 199, 1},
		{1, 300, 3, 0, 2},
		{-3, -5, 1, 0, 0},
		{5, 499, 5, 499, 0},
	}
	for _, tc := range cases {
		level, xp, gained := Rollover(tc.level, tc.xp)
		if level != tc.wantLevel || xp != tc.wantXP || gained != tc.wantGained {
			t.Fatalf("Rollover(%d,%d) = %d,%d,%d want %d,%d,%d", tc.level, tc.xp, level, xp, gained, tc.wantLevel, tc.wantXP, tc.wantGained)
		}
	}
}
