package quiz

import (
	"encoding/json"
	"fmt"
	"strings"

	"bookcraft-cli/internal/model"
	"bookcraft-cli/internal/validate"
)

// Answer is the typed body of one submitted answer.
type Answer interface {
	Validate() error
}

// ChoiceAnswer selects option ids (single/multiple choice, true/false).
type ChoiceAnswer struct {
	OptionIDs []string `json:"optionIds" validate:"required,min=1,dive,required"`
}

// TextAnswer fills the blanks of a fill-blank widget, in order.
type TextAnswer struct {
	Values []string `json:"values" validate:"required,min=1"`
}

// PairsAnswer maps left to right (matching, drag-drop).
type PairsAnswer struct {
	Pairs map[string]string `json:"pairs" validate:"required,min=1"`
}

// WordsAnswer lists the words found in a word search.
type WordsAnswer struct {
	Words []string `json:"words" validate:"required,min=1,dive,required"`
}

func (a ChoiceAnswer) Validate() error { return validate.Struct(a) }
func (a TextAnswer) Validate() error   { return validate.Struct(a) }
func (a PairsAnswer) Validate() error  { return validate.Struct(a) }
func (a WordsAnswer) Validate() error  { return validate.Struct(a) }

// ParseAnswer builds the answer type matching t from raw CLI input.
//
//	choice:      "opt1,opt2"
//	fill_blank:  "first|second"
//	pairs:       "left=right,left2=right2"
//	word_search: "cat,dog"
//
// A raw value starting with '{' is decoded as JSON instead.
func ParseAnswer(t model.WidgetType, raw string) (Answer, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty answer")
	}
	if !t.IsQuiz() {
		return nil, fmt.Errorf("%s is not a quiz widget", t)
	}

	var a Answer
	if strings.HasPrefix(raw, "{") {
		var err error
		a, err = decodeJSON(t, raw)
		if err != nil {
			return nil, err
		}
	} else {
		switch t {
		case model.WidgetMultipleChoice, model.WidgetSingleChoice, model.WidgetTrueFalse:
			a = ChoiceAnswer{OptionIDs: splitList(raw, ",")}
		case model.WidgetFillBlank:
			a = TextAnswer{Values: splitKeep(raw, "|")}
		case model.WidgetMatching, model.WidgetDragDrop:
			pairs := map[string]string{}
			for _, p := range splitList(raw, ",") {
				l, r, ok := strings.Cut(p, "=")
				if !ok {
					return nil, fmt.Errorf("invalid pair %q (want left=right)", p)
				}
				pairs[strings.TrimSpace(l)] = strings.TrimSpace(r)
			}
			a = PairsAnswer{Pairs: pairs}
		case model.WidgetWordSearch:
			a = WordsAnswer{Words: splitList(raw, ",")}
		default:
			return nil, fmt.Errorf("no answer format for %s", t)
		}
	}
	if t == model.WidgetSingleChoice || t == model.WidgetTrueFalse {
		if c, ok := a.(ChoiceAnswer); ok && len(c.OptionIDs) > 1 {
			return nil, fmt.Errorf("%s accepts exactly one option", t)
		}
	}
	return a, a.Validate()
}

func decodeJSON(t model.WidgetType, raw string) (Answer, error) {
	var err error
	switch t {
	case model.WidgetMultipleChoice, model.WidgetSingleChoice, model.WidgetTrueFalse:
		var v ChoiceAnswer
		err = json.Unmarshal([]byte(raw), &v)
		return v, err
	case model.WidgetFillBlank:
		var v TextAnswer
		err = json.Unmarshal([]byte(raw), &v)
		return v, err
	case model.WidgetMatching, model.WidgetDragDrop:
		var v PairsAnswer
		err = json.Unmarshal([]byte(raw), &v)
		return v, err
	case model.WidgetWordSearch:
		var v WordsAnswer
		err = json.Unmarshal([]byte(raw), &v)
		return v, err
	}
	return nil, fmt.Errorf("no answer format for %s", t)
}

func splitList(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitKeep keeps empty entries so blank positions stay aligned.
func splitKeep(s, sep string) []string {
	parts := strings.Split(s, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
