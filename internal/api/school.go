package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"bookcraft-cli/internal/model"
)

type GenerateKeysInput struct {
	BookID    string     `json:"bookId" validate:"required"`
	Count     int        `json:"count" validate:"min=1,max=500"`
	MaxUses   int        `json:"maxUses" validate:"min=1"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type ActivateKeyInput struct {
	Code string `json:"code" validate:"required,keycode"`
}

type MemberInput struct {
	Email string     `json:"email" validate:"required,email"`
	Role  model.Role `json:"role" validate:"required,oneof=teacher student editor"`
}

func (c *Client) ListKeys(ctx context.Context, bookID string) ([]model.ActivationKey, error) {
	var q url.Values
	if bookID != "" {
		q = url.Values{"bookId": {bookID}}
	}
	var out []model.ActivationKey
	err := c.do(ctx, http.MethodGet, "/api/keys", q, nil, &out)
	return out, err
}

func (c *Client) GenerateKeys(ctx context.Context, in GenerateKeysInput) ([]model.ActivationKey, error) {
	var out []model.ActivationKey
	err := c.do(ctx, http.MethodPost, "/api/keys", nil, in, &out)
	return out, err
}

// ActivateKey redeems a registration key for the current user.
func (c *Client) ActivateKey(ctx context.Context, in ActivateKeyInput) (*model.ActivationKey, error) {
	var out model.ActivationKey
	if err := c.do(ctx, http.MethodPost, "/api/keys/activate", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RevokeKey(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/keys/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ListMembers(ctx context.Context) ([]model.SchoolMember, error) {
	var out []model.SchoolMember
	err := c.do(ctx, http.MethodGet, "/api/school/members", nil, nil, &out)
	return out, err
}

func (c *Client) AddMember(ctx context.Context, in MemberInput) (*model.SchoolMember, error) {
	var out model.SchoolMember
	if err := c.do(ctx, http.MethodPost, "/api/school/members", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveMember(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/api/school/members/"+url.PathEscape(userID), nil, nil, nil)
}
