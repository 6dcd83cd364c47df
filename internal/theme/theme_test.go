package theme

import "testing"

func alwaysDark() bool  { return true }
func alwaysLight() bool { return false }

func TestNewSelectsMode(t *testing.T) {
	cases := []struct {
		name string
		opts Options
		want Mode
	}{
		{name: "empty defaults to dark", opts: Options{}, want: ModeDark},
		{name: "preferred light", opts: Options{Preferred: "light"}, want: ModeLight},
		{name: "override wins", opts: Options{Override: "dark", Preferred: "light"}, want: ModeDark},
		{name: "unknown override falls through", opts: Options{Override: "neon", Preferred: "light"}, want: ModeLight},
		{name: "case and space", opts: Options{Preferred: "  LIGHT "}, want: ModeLight},
		{name: "auto on dark terminal", opts: Options{Preferred: "auto", HasDarkBackground: alwaysDark}, want: ModeDark},
		{name: "auto on light terminal", opts: Options{Preferred: "auto", HasDarkBackground: alwaysLight}, want: ModeLight},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := New(tc.opts).Mode; got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestParseAndLabel(t *testing.T) {
	for _, mode := range Modes {
		parsed, ok := Parse(string(mode))
		if !ok || parsed != mode {
			t.Fatalf("expected %s to parse, got %q %v", mode, parsed, ok)
		}
		if Label(mode) == "" {
			t.Fatalf("expected label for %s", mode)
		}
	}
	if _, ok := Parse("midnight"); ok {
		t.Fatalf("expected unknown mode to be rejected")
	}
	if Label(ModeLight) != "Light" {
		t.Fatalf("unexpected light label %q", Label(ModeLight))
	}
}

func TestRenderTabKeepsLabel(t *testing.T) {
	th := New(Options{Preferred: "dark"})
	for _, active := range []bool{true, false} {
		if out := th.RenderTab("Servers", active); out == "" {
			t.Fatalf("expected rendered tab, active=%v", active)
		}
	}
}
