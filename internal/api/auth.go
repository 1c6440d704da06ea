package api

import (
	"context"
	"net/http"

	"bookcraft-cli/internal/model"
)

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Key      string `json:"key,omitempty" validate:"omitempty,keycode"`
}

type session struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Login exchanges credentials for a bearer token. The client starts using the
// token immediately.
func (c *Client) Login(ctx context.Context, in LoginInput) (string, *model.User, error) {
	var out session
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, in, &out); err != nil {
		return "", nil, err
	}
	c.SetToken(out.Token)
	return out.Token, &out.User, nil
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (string, *model.User, error) {
	var out session
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, in, &out); err != nil {
		return "", nil, err
	}
	c.SetToken(out.Token)
	return out.Token, &out.User, nil
}

func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
