// Package api is the client for the authoring platform's REST API.
//
// Every response is wrapped in a {success, data, messages} envelope.
// Requests carry the session's bearer token in the Authorization header.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"bookcraft-cli/internal/logger"

	"github.com/google/uuid"
)

const defaultUserAgent = "bookcraft-cli"

// Client talks to the REST API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	log       *logger.Logger
	userAgent string

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (e.g. one using the offline transport).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sets the initial bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

// New creates a client for the API rooted at baseURL (scheme + host).
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("api: missing base URL")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("api: invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api: base URL must be http(s), got %q", baseURL)
	}
	c := &Client{
		baseURL:   u,
		http:      &http.Client{Timeout: 30 * time.Second},
		log:       logger.Nop(),
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.mirrorCookie()
	return c, nil
}

// BaseURL returns the API origin.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token and mirrors it into the cookie jar.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
	c.mirrorCookie()
}

// mirrorCookie keeps a "token" cookie for the API origin in sync with the
// bearer token, for servers that gate routes on the cookie.
func (c *Client) mirrorCookie() {
	if c.http == nil || c.http.Jar == nil {
		return
	}
	tok := c.Token()
	ck := &http.Cookie{Name: "token", Value: tok, Path: "/"}
	if tok == "" {
		ck.MaxAge = -1
	}
	c.http.Jar.SetCookies(c.baseURL, []*http.Cookie{ck})
}

type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Messages json.RawMessage `json:"messages"`
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	c.log.Debug("api request", "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	return decodeResponse(resp.StatusCode, raw, out)
}

func decodeResponse(status int, raw []byte, out any) error {
	if status == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) == 0 {
		if status >= 400 {
			return &Error{Status: status, Messages: []string{http.StatusText(status)}}
		}
		return nil
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		if status >= 400 {
			return &Error{Status: status, Messages: []string{strings.TrimSpace(string(raw))}}
		}
		return fmt.Errorf("decode envelope: %w", err)
	}

	if !env.Success || status >= 400 {
		msgs, fields := parseMessages(env.Messages)
		if len(fields) > 0 {
			return &ValidationError{Status: status, Fields: fields, Messages: msgs}
		}
		if status == http.StatusNotFound {
			return &Error{Status: status, Messages: msgs, notFound: true}
		}
		return &Error{Status: status, Messages: msgs}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
