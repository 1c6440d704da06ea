package widget

import (
	"fmt"
	"strings"
	"sync"

	"bookcraft-cli/internal/model"
	"bookcraft-cli/internal/validate"

	"github.com/xeipuuv/gojsonschema"
)

const stringList = `{"type": "array", "items": {"type": "string"}}`

const pairList = `{"type": "array", "items": {"type": "object",
	"properties": {"left": {"type": "string"}, "right": {"type": "string"}},
	"required": ["left", "right"]}}`

// schemas describe the wire shape only; value rules live in struct tags.
var schemas = map[model.WidgetType]string{
	model.WidgetHeading: `{"type": "object",
		"properties": {"text": {"type": "string"}, "level": {"type": "integer"}}}`,
	model.WidgetText: `{"type": "object",
		"properties": {"markdown": {"type": "string"}}}`,
	model.WidgetImage: `{"type": "object",
		"properties": {"url": {"type": "string"}, "alt": {"type": "string"}, "caption": {"type": "string"}}}`,
	model.WidgetBanner: `{"type": "object",
		"properties": {"title": {"type": "string"}, "subtitle": {"type": "string"}, "imageUrl": {"type": "string"}}}`,
	model.WidgetQuote: `{"type": "object",
		"properties": {"text": {"type": "string"}, "author": {"type": "string"}}}`,
	model.WidgetVideo: `{"type": "object",
		"properties": {"url": {"type": "string"}}}`,
	model.WidgetDivider: `{"type": "object"}`,
	model.WidgetMultipleChoice: `{"type": "object",
		"properties": {"prompt": {"type": "string"}, "multiple": {"type": "boolean"}}}`,
	model.WidgetSingleChoice: `{"type": "object",
		"properties": {"prompt": {"type": "string"}, "multiple": {"type": "boolean"}}}`,
	model.WidgetTrueFalse: `{"type": "object",
		"properties": {"statement": {"type": "string"}, "answer": {"type": "boolean"}}}`,
	model.WidgetFillBlank: `{"type": "object",
		"properties": {"template": {"type": "string"}, "blanks": ` + stringList + `}}`,
	model.WidgetDragDrop: `{"type": "object",
		"properties": {"prompt": {"type": "string"}, "items": ` + stringList + `, "targets": ` + stringList + `, "pairs": ` + pairList + `}}`,
	model.WidgetWordSearch: `{"type": "object",
		"properties": {"words": ` + stringList + `, "size": {"type": "integer"}}}`,
	model.WidgetMatching: `{"type": "object",
		"properties": {"pairs": ` + pairList + `}}`,
}

var (
	compiledMu sync.Mutex
	compiled   = map[model.WidgetType]*gojsonschema.Schema{}
)

func schemaFor(t model.WidgetType) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if s := compiled[t]; s != nil {
		return s, nil
	}
	src, ok := schemas[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", t, err)
	}
	compiled[t] = s
	return s, nil
}

func checkSchema(t model.WidgetType, raw []byte) error {
	s, err := schemaFor(t)
	if err != nil {
		return err
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%s payload is not valid JSON: %w", t, err)
	}
	if res.Valid() {
		return nil
	}
	fe := validate.FieldErrors{}
	for _, e := range res.Errors() {
		field := e.Field()
		if field == "(root)" {
			field = "data"
		}
		fe.Add(strings.TrimPrefix(field, "(root)."), e.Description())
	}
	return fe
}
