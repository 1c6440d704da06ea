package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"bookcraft-cli/internal/model"
)

func (c *Client) ListBlocks(ctx context.Context, chapterID string) ([]model.Block, error) {
	var out []model.Block
	err := c.do(ctx, http.MethodGet, "/api/chapters/"+url.PathEscape(chapterID)+"/blocks", nil, nil, &out)
	return out, err
}

func (c *Client) CreateBlock(ctx context.Context, chapterID string, layout model.LayoutType) (*model.Block, error) {
	var out model.Block
	body := map[string]any{"layout": layout}
	if err := c.do(ctx, http.MethodPost, "/api/chapters/"+url.PathEscape(chapterID)+"/blocks", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateBlockStyle(ctx context.Context, blockID string, style model.BlockStyle) error {
	body := map[string]any{"style": style}
	return c.do(ctx, http.MethodPatch, "/api/blocks/"+url.PathEscape(blockID), nil, body, nil)
}

func (c *Client) DeleteBlock(ctx context.Context, blockID string) error {
	return c.do(ctx, http.MethodDelete, "/api/blocks/"+url.PathEscape(blockID), nil, nil, nil)
}

// ReorderBlocks persists the full ordered block list of a chapter.
func (c *Client) ReorderBlocks(ctx context.Context, chapterID string, order []model.OrderEntry) error {
	body := map[string]any{"order": order}
	return c.do(ctx, http.MethodPut, "/api/chapters/"+url.PathEscape(chapterID)+"/blocks/order", nil, body, nil)
}

type WidgetInput struct {
	Type   model.WidgetType `json:"type"`
	Row    int              `json:"row"`
	Column int              `json:"column"`
	Data   json.RawMessage  `json:"data"`
}

func (c *Client) CreateWidget(ctx context.Context, blockID string, in WidgetInput) (*model.Widget, error) {
	var out model.Widget
	if err := c.do(ctx, http.MethodPost, "/api/blocks/"+url.PathEscape(blockID)+"/widgets", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateWidget(ctx context.Context, widgetID string, data json.RawMessage) error {
	body := map[string]any{"data": data}
	return c.do(ctx, http.MethodPatch, "/api/widgets/"+url.PathEscape(widgetID), nil, body, nil)
}

func (c *Client) DeleteWidget(ctx context.Context, widgetID string) error {
	return c.do(ctx, http.MethodDelete, "/api/widgets/"+url.PathEscape(widgetID), nil, nil, nil)
}

type QuestionInput struct {
	Text     string `json:"text" validate:"required"`
	ImageURL string `json:"imageUrl,omitempty" validate:"omitempty,url"`
}

type OptionInput struct {
	Text     string `json:"text" validate:"required_without=ImageURL"`
	Correct  bool   `json:"correct"`
	ImageURL string `json:"imageUrl,omitempty" validate:"omitempty,url"`
}

func (c *Client) ListQuestions(ctx context.Context, widgetID string) ([]model.Question, error) {
	var out []model.Question
	err := c.do(ctx, http.MethodGet, "/api/widgets/"+url.PathEscape(widgetID)+"/questions", nil, nil, &out)
	return out, err
}

func (c *Client) CreateQuestion(ctx context.Context, widgetID string, in QuestionInput) (*model.Question, error) {
	var out model.Question
	if err := c.do(ctx, http.MethodPost, "/api/widgets/"+url.PathEscape(widgetID)+"/questions", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateQuestion(ctx context.Context, id string, in QuestionInput) (*model.Question, error) {
	var out model.Question
	if err := c.do(ctx, http.MethodPatch, "/api/questions/"+url.PathEscape(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteQuestion(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/questions/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) CreateOption(ctx context.Context, questionID string, in OptionInput) (*model.Option, error) {
	var out model.Option
	if err := c.do(ctx, http.MethodPost, "/api/questions/"+url.PathEscape(questionID)+"/options", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateOption(ctx context.Context, id string, in OptionInput) (*model.Option, error) {
	var out model.Option
	if err := c.do(ctx, http.MethodPatch, "/api/options/"+url.PathEscape(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteOption(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/options/"+url.PathEscape(id), nil, nil, nil)
}
