package tui

import (
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

var (
	mdRendererMu sync.Mutex
	// Keyed by style + wrap width. WithAutoStyle can block on terminal
	// queries, so a fixed style is resolved up front.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

// RenderMarkdown renders md for a pane of the given width. It falls back to
// the raw text if glamour fails.
func RenderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}
	style := markdownStyle()
	key := style + ":" + strconv.Itoa(width)

	mdRendererMu.Lock()
	r := mdRenderers[key]
	if r == nil {
		cfg := markdownStyleConfig(style)
		zero := uint(0)
		cfg.Document.Margin = &zero
		rr, err := glamour.NewTermRenderer(
			glamour.WithStyles(cfg),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			mdRendererMu.Unlock()
			return md
		}
		mdRenderers[key] = rr
		r = rr
	}
	mdRendererMu.Unlock()

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func markdownStyle() string {
	if dark, ok := themeOverride(); ok {
		if dark {
			return "dark"
		}
		return "light"
	}
	if lipgloss.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

func markdownStyleConfig(style string) ansi.StyleConfig {
	cfg := styles.DarkStyleConfig
	if style == "light" {
		cfg = styles.LightStyleConfig
	}
	text := pick(colors.surfaceFg, style)
	link := pick(colors.accent, style)
	for _, b := range []*ansi.StyleBlock{&cfg.Heading, &cfg.H1, &cfg.H2, &cfg.H3, &cfg.H4, &cfg.H5, &cfg.H6} {
		b.Color = text
	}
	cfg.Text.Color = text
	cfg.Link.Color = link
	cfg.LinkText.Color = link
	cfg.BlockQuote.Faint = boolPtr(false)
	return cfg
}

func pick(c lipgloss.AdaptiveColor, style string) *string {
	v := c.Dark
	if style == "light" {
		v = c.Light
	}
	return &v
}

func boolPtr(b bool) *bool { return &b }
