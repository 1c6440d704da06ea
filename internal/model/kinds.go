package model

import (
	"fmt"
	"strings"
)

type LayoutType string

const (
	LayoutSingle       LayoutType = "single"
	LayoutTwoColumns   LayoutType = "two_columns"
	LayoutThreeColumns LayoutType = "three_columns"
	LayoutWideLeft     LayoutType = "wide_left"
	LayoutWideRight    LayoutType = "wide_right"
	LayoutGrid         LayoutType = "grid"
)

var layouts = []LayoutType{
	LayoutSingle,
	LayoutTwoColumns,
	LayoutThreeColumns,
	LayoutWideLeft,
	LayoutWideRight,
	LayoutGrid,
}

func Layouts() []LayoutType {
	return append([]LayoutType{}, layouts...)
}

func ParseLayout(s string) (LayoutType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	for _, l := range layouts {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown layout: %q", s)
}

// Slots returns the (rows, columns) capacity of a layout.
func (l LayoutType) Slots() (rows, cols int) {
	switch l {
	case LayoutSingle:
		return 1, 1
	case LayoutTwoColumns, LayoutWideLeft, LayoutWideRight:
		return 1, 2
	case LayoutThreeColumns:
		return 1, 3
	case LayoutGrid:
		return 2, 2
	default:
		return 0, 0
	}
}

// Fits reports whether a widget placed at (row, col) fits inside the layout.
func (l LayoutType) Fits(row, col int) bool {
	rows, cols := l.Slots()
	return row >= 0 && col >= 0 && row < rows && col < cols
}

type WidgetType string

const (
	WidgetHeading        WidgetType = "heading"
	WidgetText           WidgetType = "text"
	WidgetImage          WidgetType = "image"
	WidgetBanner         WidgetType = "banner"
	WidgetQuote          WidgetType = "quote"
	WidgetVideo          WidgetType = "video"
	WidgetDivider        WidgetType = "divider"
	WidgetMultipleChoice WidgetType = "multiple_choice"
	WidgetSingleChoice   WidgetType = "single_choice"
	WidgetTrueFalse      WidgetType = "true_false"
	WidgetFillBlank      WidgetType = "fill_blank"
	WidgetDragDrop       WidgetType = "drag_drop"
	WidgetWordSearch     WidgetType = "word_search"
	WidgetMatching       WidgetType = "matching"
)

var widgetTypes = []WidgetType{
	WidgetHeading,
	WidgetText,
	WidgetImage,
	WidgetBanner,
	WidgetQuote,
	WidgetVideo,
	WidgetDivider,
	WidgetMultipleChoice,
	WidgetSingleChoice,
	WidgetTrueFalse,
	WidgetFillBlank,
	WidgetDragDrop,
	WidgetWordSearch,
	WidgetMatching,
}

func WidgetTypes() []WidgetType {
	return append([]WidgetType{}, widgetTypes...)
}

func ParseWidgetType(s string) (WidgetType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	for _, t := range widgetTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown widget type: %q", s)
}

// IsQuiz reports whether the widget is an interactive question widget that
// owns Questions and supports attempts.
func (t WidgetType) IsQuiz() bool {
	switch t {
	case WidgetMultipleChoice, WidgetSingleChoice, WidgetTrueFalse,
		WidgetFillBlank, WidgetDragDrop, WidgetWordSearch, WidgetMatching:
		return true
	default:
		return false
	}
}

// FindBlock returns the index of the block with id, or -1.
func FindBlock(blocks []Block, id string) int {
	for i := range blocks {
		if blocks[i].ID == id {
			return i
		}
	}
	return -1
}

// FindWidget returns the indexes (block, widget) of the widget with id, or (-1, -1).
func FindWidget(blocks []Block, id string) (int, int) {
	for bi := range blocks {
		for wi := range blocks[bi].Widgets {
			if blocks[bi].Widgets[wi].ID == id {
				return bi, wi
			}
		}
	}
	return -1, -1
}
