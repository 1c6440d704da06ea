package api

import (
	"context"
	"net/http"
	"net/url"

	"bookcraft-cli/internal/model"
)

func (c *Client) ListUsers(ctx context.Context, role model.Role) ([]model.User, error) {
	var q url.Values
	if role != "" {
		q = url.Values{"role": {string(role)}}
	}
	var out []model.User
	err := c.do(ctx, http.MethodGet, "/api/admin/users", q, nil, &out)
	return out, err
}

func (c *Client) SetUserRole(ctx context.Context, userID string, role model.Role) (*model.User, error) {
	var out model.User
	body := map[string]any{"role": role}
	if err := c.do(ctx, http.MethodPatch, "/api/admin/users/"+url.PathEscape(userID), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetUserBlocked(ctx context.Context, userID string, blocked bool) (*model.User, error) {
	var out model.User
	body := map[string]any{"blocked": blocked}
	if err := c.do(ctx, http.MethodPatch, "/api/admin/users/"+url.PathEscape(userID), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetSettings(ctx context.Context) (model.Settings, error) {
	out := model.Settings{}
	err := c.do(ctx, http.MethodGet, "/api/admin/settings", nil, nil, &out)
	return out, err
}

func (c *Client) UpdateSettings(ctx context.Context, patch model.Settings) (model.Settings, error) {
	out := model.Settings{}
	err := c.do(ctx, http.MethodPatch, "/api/admin/settings", nil, patch, &out)
	return out, err
}

func (c *Client) Stats(ctx context.Context) (*model.Stats, error) {
	var out model.Stats
	if err := c.do(ctx, http.MethodGet, "/api/admin/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
