package tui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// The editor must stay readable on light and dark terminals, so colours are
// adaptive and faint styling is only used on dark backgrounds.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

type palette struct {
	muted      lipgloss.AdaptiveColor
	selectedBg lipgloss.AdaptiveColor
	selectedFg lipgloss.AdaptiveColor
	accent     lipgloss.AdaptiveColor
	accentFg   lipgloss.AdaptiveColor
	surfaceFg  lipgloss.AdaptiveColor
	controlBg  lipgloss.AdaptiveColor
	presence   lipgloss.AdaptiveColor
	info       lipgloss.AdaptiveColor
	success    lipgloss.AdaptiveColor
	warning    lipgloss.AdaptiveColor
	danger     lipgloss.AdaptiveColor
}

var defaultPalette = palette{
	muted:      ac("240", "243"),
	selectedBg: ac("#e9e9e9", "#262626"),
	selectedFg: ac("235", "255"),
	accent:     ac("27", "62"),
	accentFg:   ac("255", "235"),
	surfaceFg:  ac("235", "252"),
	controlBg:  ac("252", "235"),
	presence:   ac("130", "214"),
	info:       ac("27", "75"),
	success:    ac("28", "78"),
	warning:    ac("130", "214"),
	danger:     ac("160", "203"),
}

// monoPalette drops hue for terminals or users that prefer no colour accents.
var monoPalette = palette{
	muted:      ac("240", "245"),
	selectedBg: ac("252", "238"),
	selectedFg: ac("232", "255"),
	accent:     ac("232", "255"),
	accentFg:   ac("255", "232"),
	surfaceFg:  ac("235", "252"),
	controlBg:  ac("252", "235"),
	presence:   ac("232", "255"),
	info:       ac("235", "252"),
	success:    ac("235", "252"),
	warning:    ac("232", "255"),
	danger:     ac("232", "255"),
}

var colors = defaultPalette

func applyProfile(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mono":
		colors = monoPalette
	default:
		colors = defaultPalette
	}
}

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colors.muted))
}

// applyColorProfilePreference only honors NO_COLOR and otherwise trusts the
// terminal; termenv.EnvColorProfile would also honor CLICOLOR, which can
// disable colour in an interactive session.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	profile := termenv.ColorProfile()

	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	switch {
	case strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit"):
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	case strings.Contains(term, "256color"):
		if profile == termenv.Ascii || profile == termenv.ANSI {
			profile = termenv.ANSI256
		}
	}
	lipgloss.SetColorProfile(profile)
}

// applyThemePreference resolves light/dark from BOOKCRAFT_TUI_THEME, then
// COLORFGBG, and otherwise leaves lipgloss's own detection alone.
func applyThemePreference() {
	if dark, ok := themeOverride(); ok {
		lipgloss.SetHasDarkBackground(dark)
	}
}

func themeOverride() (dark bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("BOOKCRAFT_TUI_THEME"))) {
	case "light":
		return false, true
	case "dark":
		return true, true
	}
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			// xterm palette: 0-6 dark, 7-15 light.
			return bg < 7, true
		}
	}
	return false, false
}
