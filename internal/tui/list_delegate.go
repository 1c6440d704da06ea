package tui

import (
	"fmt"
	"io"
	"strings"

	"bookcraft-cli/internal/model"
	"bookcraft-cli/internal/presence"
	"bookcraft-cli/internal/widget"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

type blockItem struct {
	block  model.Block
	pos    int
	others []presence.Occupant
	moving bool
	target bool
}

func (it blockItem) FilterValue() string { return it.block.ID }

func (it blockItem) Title() string {
	rows, cols := it.block.Layout.Slots()
	title := fmt.Sprintf("%2d. %s (%dx%d) · %s", it.pos+1, it.block.Layout, rows, cols, plural(len(it.block.Widgets), "widget"))
	if it.block.Style.Background != "" {
		title += " · bg " + it.block.Style.Background
	}
	return title
}

type widgetItem struct {
	widget model.Widget
}

func (it widgetItem) FilterValue() string { return it.widget.ID }

func (it widgetItem) Title() string {
	summary := ""
	if p, err := widget.Decode(it.widget.Type, it.widget.Data); err == nil {
		summary = widget.Summary(p)
	} else {
		summary = "(invalid payload)"
	}
	return fmt.Sprintf("[%d,%d] %-15s %s", it.widget.Row, it.widget.Column, it.widget.Type, summary)
}

// rowDelegate renders single-line rows with a selection bar, a move marker
// and presence badges.
type rowDelegate struct{}

func (d rowDelegate) Height() int                             { return 1 }
func (d rowDelegate) Spacing() int                            { return 0 }
func (d rowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d rowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	contentW := m.Width()
	if contentW < 4 {
		return
	}

	marker := "  "
	badge := ""
	title := ""
	switch it := item.(type) {
	case blockItem:
		title = it.Title()
		switch {
		case it.moving:
			marker = "⇅ "
		case it.target:
			marker = "→ "
		}
		if len(it.others) > 0 {
			badge = lipgloss.NewStyle().Foreground(colors.presence).Render(" ● " + presence.Label(it.others))
		}
	case widgetItem:
		title = it.Title()
	default:
		title = fmt.Sprint(item)
	}

	style := lipgloss.NewStyle()
	if index == m.Index() {
		style = style.Foreground(colors.selectedFg).Background(colors.selectedBg).Bold(true)
	}

	room := contentW - xansi.StringWidth(badge)
	line := fitLine(marker+title, max(room, 1))
	fmt.Fprint(w, style.Render(line)+badge)
}

func newRowList() list.Model {
	l := list.New([]list.Item{}, rowDelegate{}, 40, 10)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowPagination(true)
	l.DisableQuitKeybindings()
	return l
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func selectByID(l *list.Model, id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	for i, it := range l.Items() {
		if it.FilterValue() == id {
			l.Select(i)
			return true
		}
	}
	return false
}
