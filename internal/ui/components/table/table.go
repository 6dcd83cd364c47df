package table

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/flyvpn/flyvpn-tui/internal/util"
)

// Column describes one fixed-width table column.
type Column struct {
	Title string
	Width int
}

// ComputeMaxWidth returns the widest row width (ANSI-safe cell width).
func ComputeMaxWidth(rows []string) int {
	maxWidth := 0
	for _, row := range rows {
		if w := ansi.StringWidth(row); w > maxWidth {
			maxWidth = w
		}
	}
	return maxWidth
}

// ClipRows slices each row horizontally using ANSI-safe slicing.
func ClipRows(rows []string, xOffset, width int) []string {
	if width <= 0 {
		width = 1
	}
	if xOffset < 0 {
		xOffset = 0
	}
	clipped := make([]string, len(rows))
	for i, row := range rows {
		clipped[i] = ansi.Cut(row, xOffset, xOffset+width)
	}
	return clipped
}

// Window returns the [start,end) slice of total rows that keeps cursor visible
// within height lines.
func Window(total, cursor, height int) (int, int) {
	if height <= 0 || total <= height {
		return 0, total
	}
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	if start+height > total {
		start = total - height
	}
	return start, start + height
}

// RenderCaretRow renders a caret indicator row for truncated tables.
func RenderCaretRow(width int, style lipgloss.Style) string {
	if width <= 0 {
		width = 3
	}
	glyphs := []rune(strings.Repeat(" ", width))
	for _, pos := range []int{0, width / 2, max(0, width-1)} {
		glyphs[pos] = 'v'
	}
	return style.Render(string(glyphs))
}

// PadAndStyle truncates/pads text and renders it with the given style.
func PadAndStyle(style lipgloss.Style, text string, width int, truncate bool) string {
	if width <= 0 {
		return ""
	}
	content := text
	if truncate {
		content = util.TruncateString(text, width)
	}
	return style.Render(util.PadString(content, width))
}

// Header renders the column titles.
func Header(style lipgloss.Style, cols []Column) string {
	titles := make([]string, len(cols))
	for i, col := range cols {
		titles[i] = col.Title
	}
	return Row(style, cols, titles)
}

// Row renders one line of cells separated by a single space. Missing values
// render blank.
func Row(style lipgloss.Style, cols []Column, values []string) string {
	cells := make([]string, len(cols))
	for i, col := range cols {
		value := ""
		if i < len(values) {
			value = values[i]
		}
		cells[i] = PadAndStyle(style, value, col.Width, true)
	}
	return strings.Join(cells, " ")
}
