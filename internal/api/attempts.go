package api

import (
	"context"
	"net/http"
	"net/url"

	"bookcraft-cli/internal/model"
)

func (c *Client) StartAttempt(ctx context.Context, widgetID string) (*model.Attempt, error) {
	var out model.Attempt
	if err := c.do(ctx, http.MethodPost, "/api/widgets/"+url.PathEscape(widgetID)+"/attempts", nil, nil, &out); err != nil {
		return nil, err
	}
	if out.WidgetID == "" {
		out.WidgetID = widgetID
	}
	return &out, nil
}

// SubmitAnswer sends one answer; answer is marshalled as the "answer" field.
func (c *Client) SubmitAnswer(ctx context.Context, attemptID string, answer any) (*model.AnswerResult, error) {
	var out model.AnswerResult
	body := map[string]any{"answer": answer}
	if err := c.do(ctx, http.MethodPost, "/api/attempts/"+url.PathEscape(attemptID)+"/answers", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CompleteAttempt(ctx context.Context, attemptID string) (*model.AttemptResult, error) {
	var out model.AttemptResult
	if err := c.do(ctx, http.MethodPost, "/api/attempts/"+url.PathEscape(attemptID)+"/complete", nil, nil, &out); err != nil {
		return nil, err
	}
	if out.AttemptID == "" {
		out.AttemptID = attemptID
	}
	return &out, nil
}
