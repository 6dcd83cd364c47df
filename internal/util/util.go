package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/flyvpn/flyvpn-tui/internal/state"
)

// Fallback returns def when value is empty or whitespace only.
func Fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

// RelativeTime renders a human-friendly duration between ts and now.
func RelativeTime(ts, now time.Time) string {
	if ts.IsZero() {
		return "never"
	}
	delta := now.Sub(ts)
	if delta < time.Second {
		delta = time.Second
	}
	return delta.Truncate(time.Second).String() + " ago"
}

// WrapIndex wraps the index within [0,length).
func WrapIndex(current, delta, length int) int {
	if length <= 0 {
		return 0
	}
	next := (current + delta) % length
	if next < 0 {
		next += length
	}
	return next
}

// ClampIndex keeps a cursor inside [0,length).
func ClampIndex(current, length int) int {
	if length <= 0 || current < 0 {
		return 0
	}
	if current >= length {
		return length - 1
	}
	return current
}

// ServerName returns "City, Country" for a server, falling back to its id.
func ServerName(srv state.Server) string {
	if srv.IsZero() {
		return "No server"
	}
	switch {
	case srv.City != "" && srv.Country != "" && srv.City != srv.Country:
		return srv.City + ", " + srv.Country
	case srv.City != "":
		return srv.City
	case srv.Country != "":
		return srv.Country
	}
	return srv.ID
}

// Latency renders a server latency or a dash when unknown.
func Latency(srv state.Server) string {
	if v, ok := srv.LatencyValue(); ok {
		return fmt.Sprintf("%dms", v)
	}
	return "-"
}

// Load renders a server load percentage or a dash when unknown.
func Load(srv state.Server) string {
	if v, ok := srv.LoadValue(); ok {
		return fmt.Sprintf("%d%%", v)
	}
	return "-"
}

// Bytes renders a traffic counter in SI units.
func Bytes(n uint64) string {
	return humanize.Bytes(n)
}

// TruncateString truncates a string to width cells with an ellipsis when needed.
// ANSI sequences are preserved and do not count towards the width.
func TruncateString(value string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return ansi.Truncate(value, width, "")
	}
	return ansi.Truncate(value, width, "...")
}

// PadString pads value with spaces up to width cells.
func PadString(value string, width int) string {
	padding := width - ansi.StringWidth(value)
	if padding > 0 {
		return value + strings.Repeat(" ", padding)
	}
	return value
}

// StripANSI removes terminal escape sequences.
func StripANSI(value string) string {
	return ansi.Strip(value)
}
