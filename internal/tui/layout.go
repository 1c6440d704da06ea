package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// normalizePane forces s to exactly width columns (ANSI-aware) and height
// lines so lipgloss.JoinHorizontal produces stable split panes.
func normalizePane(s string, width, height int) string {
	width = max(width, 0)
	height = max(height, 0)

	lines := strings.Split(s, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}
	for i, ln := range lines {
		lines[i] = fitLine(ln, width)
	}
	return strings.Join(lines, "\n")
}

// fitLine truncates with an ellipsis or pads ln to width columns.
func fitLine(ln string, width int) string {
	if width <= 0 {
		return ""
	}
	// Bound width computation on pathological lines.
	if len(ln) > 8192 {
		ln = xansi.Cut(ln, 0, width)
	}
	w := xansi.StringWidth(ln)
	if w > width {
		if width == 1 {
			ln = xansi.Cut(ln, 0, 1)
		} else {
			ln = xansi.Cut(ln, 0, width-1) + "…"
		}
		w = xansi.StringWidth(ln)
	}
	if w < width {
		ln += strings.Repeat(" ", width-w)
	}
	return ln
}

// splitPanes renders left and right side by side with a one-column gutter.
func splitPanes(left, right string, width, height int) string {
	lw := width * 2 / 5
	if lw < 30 {
		lw = min(30, width)
	}
	rw := width - lw - 1
	if rw < 0 {
		rw = 0
	}
	gutter := strings.TrimRight(strings.Repeat(" \n", height), "\n")
	return lipgloss.JoinHorizontal(lipgloss.Top,
		normalizePane(left, lw, height),
		gutter,
		normalizePane(right, rw, height),
	)
}
