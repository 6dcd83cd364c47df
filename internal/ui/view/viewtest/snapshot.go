package viewtest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/flyvpn/flyvpn-tui/internal/util"
)

// AssertSnapshot compares the rendered output, stripped of ANSI styling,
// against the stored snapshot file. UPDATE_SNAPSHOTS=1 rewrites the file.
func AssertSnapshot(t *testing.T, actual, goldenPath string) {
	t.Helper()

	abs := goldenPath
	if !filepath.IsAbs(goldenPath) {
		wd, err := os.Getwd()
		if err != nil {
			t.Fatalf("get working directory: %v", err)
		}
		abs = filepath.Join(wd, goldenPath)
	}
	actual = util.StripANSI(actual)

	if os.Getenv("UPDATE_SNAPSHOTS") == "1" {
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatalf("create snapshot dir: %v", err)
		}
		if err := os.WriteFile(abs, []byte(actual), 0o600); err != nil {
			t.Fatalf("write snapshot %s: %v", abs, err)
		}
	}

	expected, err := os.ReadFile(abs)
	if err != nil {
		t.Fatalf("read snapshot %s: %v", abs, err)
	}
	if diff := cmp.Diff(string(expected), actual); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

// AssertContains fails unless every want appears in the plain-text output.
func AssertContains(t *testing.T, output string, wants ...string) {
	t.Helper()
	plain := util.StripANSI(output)
	for _, want := range wants {
		if !strings.Contains(plain, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, plain)
		}
	}
}

// Key builds a key message from its string form, e.g. "enter", "down" or "n".
func Key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// Press feeds the messages to m and synchronously drains every command they
// produce, returning the final model and the messages the commands emitted.
func Press(m tea.Model, msgs ...tea.Msg) (tea.Model, []tea.Msg) {
	var emitted []tea.Msg
	queue := append([]tea.Msg{}, msgs...)
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]
		var cmd tea.Cmd
		m, cmd = m.Update(msg)
		for _, out := range drain(cmd) {
			emitted = append(emitted, out)
			queue = append(queue, out)
		}
	}
	return m, emitted
}

func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}
