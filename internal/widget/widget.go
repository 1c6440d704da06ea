// Package widget holds the typed payloads stored in model.Widget.Data.
//
// The server stores the payload as opaque JSON keyed by the widget's type.
// Decode and Encode are the only ways in or out, so every payload crossing
// the API boundary is schema-checked and struct-validated.
package widget

import (
	"encoding/json"
	"errors"
	"fmt"

	"bookcraft-cli/internal/model"
	"bookcraft-cli/internal/validate"
)

var ErrUnknownType = errors.New("unknown widget type")

// Payload is implemented by every per-type widget payload.
type Payload interface {
	Type() model.WidgetType
}

type Heading struct {
	Text  string `json:"text" validate:"required"`
	Level int    `json:"level" validate:"min=1,max=4"`
}

type Text struct {
	Markdown string `json:"markdown"`
}

type Image struct {
	URL     string `json:"url" validate:"required,url"`
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`
}

type Banner struct {
	Title    string `json:"title" validate:"required"`
	Subtitle string `json:"subtitle,omitempty"`
	ImageURL string `json:"imageUrl,omitempty" validate:"omitempty,url"`
}

type Quote struct {
	Text   string `json:"text" validate:"required"`
	Author string `json:"author,omitempty"`
}

type Video struct {
	URL string `json:"url" validate:"required,url"`
}

type Divider struct{}

// Choice backs both multiple_choice and single_choice widgets; the options
// themselves are Questions/Options owned by the widget.
type Choice struct {
	Prompt   string `json:"prompt"`
	Multiple bool   `json:"multiple"`
}

type TrueFalse struct {
	Statement string `json:"statement" validate:"required"`
	Answer    bool   `json:"answer"`
}

// FillBlank uses "___" in Template for each blank, in order.
type FillBlank struct {
	Template string   `json:"template" validate:"required"`
	Blanks   []string `json:"blanks" validate:"required,min=1,dive,required"`
}

type Pair struct {
	Left  string `json:"left" validate:"required"`
	Right string `json:"right" validate:"required"`
}

type DragDrop struct {
	Prompt  string   `json:"prompt"`
	Items   []string `json:"items" validate:"required,min=1,dive,required"`
	Targets []string `json:"targets" validate:"required,min=1,dive,required"`
	Pairs   []Pair   `json:"pairs" validate:"dive"`
}

type WordSearch struct {
	Words []string `json:"words" validate:"required,min=1,dive,required,alpha"`
	Size  int      `json:"size" validate:"min=5,max=30"`
}

type Matching struct {
	Pairs []Pair `json:"pairs" validate:"required,min=2,dive"`
}

func (Heading) Type() model.WidgetType    { return model.WidgetHeading }
func (Text) Type() model.WidgetType       { return model.WidgetText }
func (Image) Type() model.WidgetType      { return model.WidgetImage }
func (Banner) Type() model.WidgetType     { return model.WidgetBanner }
func (Quote) Type() model.WidgetType      { return model.WidgetQuote }
func (Video) Type() model.WidgetType      { return model.WidgetVideo }
func (Divider) Type() model.WidgetType    { return model.WidgetDivider }
func (TrueFalse) Type() model.WidgetType  { return model.WidgetTrueFalse }
func (FillBlank) Type() model.WidgetType  { return model.WidgetFillBlank }
func (DragDrop) Type() model.WidgetType   { return model.WidgetDragDrop }
func (WordSearch) Type() model.WidgetType { return model.WidgetWordSearch }
func (Matching) Type() model.WidgetType   { return model.WidgetMatching }

func (c Choice) Type() model.WidgetType {
	if c.Multiple {
		return model.WidgetMultipleChoice
	}
	return model.WidgetSingleChoice
}

// New returns an empty payload for t, suitable as a starting point for editing.
func New(t model.WidgetType) (Payload, error) {
	switch t {
	case model.WidgetHeading:
		return Heading{Text: "Heading", Level: 1}, nil
	case model.WidgetText:
		return Text{}, nil
	case model.WidgetImage:
		return Image{}, nil
	case model.WidgetBanner:
		return Banner{}, nil
	case model.WidgetQuote:
		return Quote{}, nil
	case model.WidgetVideo:
		return Video{}, nil
	case model.WidgetDivider:
		return Divider{}, nil
	case model.WidgetMultipleChoice:
		return Choice{Multiple: true}, nil
	case model.WidgetSingleChoice:
		return Choice{}, nil
	case model.WidgetTrueFalse:
		return TrueFalse{}, nil
	case model.WidgetFillBlank:
		return FillBlank{}, nil
	case model.WidgetDragDrop:
		return DragDrop{}, nil
	case model.WidgetWordSearch:
		return WordSearch{Size: 10}, nil
	case model.WidgetMatching:
		return Matching{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
}

// Decode checks raw against the schema for t and returns the typed payload.
func Decode(t model.WidgetType, raw json.RawMessage) (Payload, error) {
	p, err := New(t)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	if err := checkSchema(t, raw); err != nil {
		return nil, err
	}

	switch v := p.(type) {
	case Heading:
		err = json.Unmarshal(raw, &v)
		p = v
	case Text:
		err = json.Unmarshal(raw, &v)
		p = v
	case Image:
		err = json.Unmarshal(raw, &v)
		p = v
	case Banner:
		err = json.Unmarshal(raw, &v)
		p = v
	case Quote:
		err = json.Unmarshal(raw, &v)
		p = v
	case Video:
		err = json.Unmarshal(raw, &v)
		p = v
	case Divider:
	case Choice:
		err = json.Unmarshal(raw, &v)
		v.Multiple = t == model.WidgetMultipleChoice
		p = v
	case TrueFalse:
		err = json.Unmarshal(raw, &v)
		p = v
	case FillBlank:
		err = json.Unmarshal(raw, &v)
		p = v
	case DragDrop:
		err = json.Unmarshal(raw, &v)
		p = v
	case WordSearch:
		err = json.Unmarshal(raw, &v)
		p = v
	case Matching:
		err = json.Unmarshal(raw, &v)
		p = v
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return p, nil
}

// Encode validates p and marshals it for the API.
func Encode(p Payload) (json.RawMessage, error) {
	if p == nil {
		return nil, errors.New("nil widget payload")
	}
	if err := validate.Struct(p); err != nil {
		return nil, err
	}
	if err := checkPayload(p); err != nil {
		return nil, err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	if err := checkSchema(p.Type(), b); err != nil {
		return nil, err
	}
	return b, nil
}

// Validate runs struct validation and cross-field checks without encoding.
func Validate(p Payload) error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	return checkPayload(p)
}

func checkPayload(p Payload) error {
	switch v := p.(type) {
	case FillBlank:
		if got := countBlanks(v.Template); got != len(v.Blanks) {
			fe := validate.FieldErrors{}
			fe.Add("blanks", fmt.Sprintf("template has %d blanks but %d answers were given", got, len(v.Blanks)))
			return fe
		}
	case WordSearch:
		for _, w := range v.Words {
			if len(w) > v.Size {
				fe := validate.FieldErrors{}
				fe.Add("words", fmt.Sprintf("%q does not fit a %dx%d grid", w, v.Size, v.Size))
				return fe
			}
		}
	}
	return nil
}
