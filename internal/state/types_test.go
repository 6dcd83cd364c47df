package state

import (
	"encoding/json"
	"testing"
)

func TestStatsJSONIsFlat(t *testing.T) {
	stats := DefaultStats()
	stats.TotalNeutralized = 3
	stats.Categories[CategoryMalware] = 2
	stats.Categories["ransomware"] = 1

	raw, err := json.Marshal(stats)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var flat map[string]int
	if err := json.Unmarshal(raw, &flat); err != nil {
		t.Fatalf("unmarshal flat: %v", err)
	}
	if flat["totalNeutralized"] != 3 || flat["malware"] != 2 || flat["ransomware"] != 1 || flat["level"] != 1 {
		t.Fatalf("unexpected flat stats %v", flat)
	}
}

func TestStatsUnmarshal(t *testing.T) {
	var stats Stats
	if err := json.Unmarshal([]byte(`{"totalNeutralized":4,"Malware":3,"level":0}`), &stats); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stats.TotalNeutralized != 4 || stats.Count("malware") != 3 || stats.Level != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if _, ok := stats.Categories[CategoryAdware]; !ok {
		t.Fatalf("expected default categories to be present")
	}

	for _, bad := range []string{`null`, `[]`, `{"malware":-1}`, `{"malware":"x"}`} {
		if err := json.Unmarshal([]byte(bad), &stats); err == nil {
			t.Fatalf("expected %s to be rejected", bad)
		}
	}
}

func TestNormalizeCategory(t *testing.T) {
	cases := map[string]string{
		"Malware":          "malware",
		"  DDoS ":          "ddos",
		"":                 CategoryOther,
		"TotalNeutralized": CategoryOther,
		"LEVEL":            CategoryOther,
	}
	for in, want := range cases {
		if got := NormalizeCategory(in); got != want {
			t.Fatalf("NormalizeCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefaultServerPrefersOptimized(t *testing.T) {
	pool := []Server{{ID: "a"}, {ID: "b", Tier: TierOptimized}, {ID: "c", Tier: TierOptimized}}
	if got := DefaultServer(pool); got.ID != "b" {
		t.Fatalf("expected b, got %s", got.ID)
	}
	if got := DefaultServer(pool[:1]); got.ID != "a" {
		t.Fatalf("expected a, got %s", got.ID)
	}
	if got := DefaultServer(nil); !got.IsZero() {
		t.Fatalf("expected zero server")
	}
}
