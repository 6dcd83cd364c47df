package widget

import (
	"fmt"
	"strings"

	"github.com/flyvpn/flyvpn-tui/internal/theme"
)

// Option represents a selectable item with a display label and underlying value.
type Option struct {
	Label string
	Value string
}

// IndexOf returns the index of the option with the given value, or 0 if not found.
func IndexOf(options []Option, value string) int {
	value = strings.ToLower(value)
	for i, opt := range options {
		if strings.ToLower(opt.Value) == value {
			return i
		}
	}
	return 0
}

// OptionsOf builds options whose label and value are the enum string.
func OptionsOf[T ~string](values []T) []Option {
	out := make([]Option, len(values))
	for i, v := range values {
		out[i] = Option{Label: string(v), Value: string(v)}
	}
	return out
}

// ToggleOptions returns the standard Off/On toggle options.
func ToggleOptions() []Option {
	return []Option{{Label: "Off", Value: "off"}, {Label: "On", Value: "on"}}
}

// RenderOptionRow renders a horizontal row of selectable options with the given
// label, highlighting the selected option and optionally styling for focus.
func RenderOptionRow(th theme.Theme, label string, opts []Option, selected int, focused bool) string {
	cells := make([]string, len(opts))
	for idx, opt := range opts {
		style := th.TabInactive
		marker := " "
		if idx == selected {
			style = th.TabActive
			if focused {
				style = style.Underline(true).Bold(true)
				marker = th.Warning.Render(">")
			}
		} else if focused {
			style = style.Faint(true)
		}
		cells[idx] = fmt.Sprintf("%s%s", marker, style.Render(opt.Label))
	}
	return fmt.Sprintf("%s %s", th.Header.Render(label+":"), strings.Join(cells, " "))
}

// RenderToggle renders a binary On/Off toggle row.
func RenderToggle(th theme.Theme, label string, enabled, focused bool) string {
	idx := 0
	if enabled {
		idx = 1
	}
	return RenderOptionRow(th, label, ToggleOptions(), idx, focused)
}

// Bar renders a width-cell progress bar for value out of total. A positive
// value always fills at least one cell.
func Bar(value, total, width int) string {
	if width <= 0 {
		return ""
	}
	filled := FilledWidth(value, total, width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// FilledWidth returns how many of width cells value/total covers, rounded.
func FilledWidth(value, total, width int) int {
	if width <= 0 || value <= 0 {
		return 0
	}
	if total <= 0 || value >= total {
		return width
	}
	filled := (value*width + total/2) / total
	if filled == 0 {
		filled = 1
	}
	return filled
}
