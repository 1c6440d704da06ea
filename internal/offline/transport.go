package offline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"bookcraft-cli/internal/logger"
)

// HeaderCache reports how a response was served: "hit", "miss", "stale" or
// "fallback".
const HeaderCache = "X-Bookcraft-Cache"

var ErrOffline = errors.New("offline: no cached response")

type Strategy int

const (
	// Bypass sends the request to the network untouched.
	Bypass Strategy = iota
	NetworkFirst
	CacheFirst
	// StaleWhileRevalidate serves the cached copy and refreshes it in the background.
	StaleWhileRevalidate
)

func (s Strategy) String() string {
	switch s {
	case NetworkFirst:
		return "network-first"
	case CacheFirst:
		return "cache-first"
	case StaleWhileRevalidate:
		return "stale-while-revalidate"
	default:
		return "bypass"
	}
}

// DefaultRevalidatePaths are the routes served cache-first with background refresh.
var DefaultRevalidatePaths = []string{
	"/api/auth/me",
	"/api/school/members",
	"/api/admin/settings",
}

var staticExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".webp": true, ".ico": true, ".css": true, ".js": true, ".woff": true, ".woff2": true,
}

const maxCachedBody = 8 << 20

// Transport is an http.RoundTripper that applies a caching strategy per
// route. Only same-origin GET requests are touched.
type Transport struct {
	base    http.RoundTripper
	cache   *Cache
	origin  *url.URL
	log     *logger.Logger
	offline bool
	swr     map[string]bool
	refresh time.Duration

	wg sync.WaitGroup
}

type Option func(*Transport)

func WithBase(rt http.RoundTripper) Option {
	return func(t *Transport) {
		if rt != nil {
			t.base = rt
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(t *Transport) {
		if l != nil {
			t.log = l
		}
	}
}

// WithOffline serves only from cache and never touches the network.
func WithOffline(offline bool) Option {
	return func(t *Transport) { t.offline = offline }
}

func WithRevalidatePaths(paths ...string) Option {
	return func(t *Transport) {
		t.swr = map[string]bool{}
		for _, p := range paths {
			if p = strings.TrimSpace(p); p != "" {
				t.swr[p] = true
			}
		}
	}
}

func NewTransport(cache *Cache, origin *url.URL, opts ...Option) *Transport {
	t := &Transport{
		base:    http.DefaultTransport,
		cache:   cache,
		origin:  origin,
		log:     logger.Nop(),
		refresh: 30 * time.Second,
	}
	WithRevalidatePaths(DefaultRevalidatePaths...)(t)
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.With("component", "offline")
	return t
}

// StrategyFor picks the strategy for req.
func (t *Transport) StrategyFor(req *http.Request) Strategy {
	if req.Method != http.MethodGet || !t.sameOrigin(req.URL) {
		return Bypass
	}
	p := req.URL.Path
	switch {
	case t.swr[p]:
		return StaleWhileRevalidate
	case p == "/api/books" || strings.HasPrefix(p, "/api/books/"):
		return NetworkFirst
	case strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/media/") || staticExts[strings.ToLower(path.Ext(p))]:
		return CacheFirst
	default:
		return NetworkFirst
	}
}

func (t *Transport) sameOrigin(u *url.URL) bool {
	if t.origin == nil || u == nil {
		return false
	}
	return strings.EqualFold(u.Scheme, t.origin.Scheme) && strings.EqualFold(u.Host, t.origin.Host)
}

// cacheKey is the request URL, scoped to the caller's credentials so one
// account never reads another account's cached responses.
func cacheKey(req *http.Request) string {
	k := *req.URL
	k.Fragment = ""
	k.User = nil
	key := k.String()
	if a := req.Header.Get("Authorization"); a != "" {
		sum := sha256.Sum256([]byte(a))
		key += " auth:" + hex.EncodeToString(sum[:8])
	}
	return key
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	strategy := t.StrategyFor(req)
	if strategy == Bypass || t.cache == nil {
		if t.offline {
			return nil, fmt.Errorf("%w: %s %s is not cacheable", ErrOffline, req.Method, req.URL.Path)
		}
		return t.base.RoundTrip(req)
	}
	ctx := req.Context()
	key := cacheKey(req)

	if t.offline {
		if e, ok := t.lookup(ctx, key); ok {
			return fromEntry(req, e, "hit"), nil
		}
		return nil, fmt.Errorf("%w: %s", ErrOffline, req.URL.Path)
	}

	switch strategy {
	case CacheFirst:
		if e, ok := t.lookup(ctx, key); ok {
			return fromEntry(req, e, "hit"), nil
		}
		return t.fetchAndStore(req, key, "miss")

	case StaleWhileRevalidate:
		if e, ok := t.lookup(ctx, key); ok {
			t.revalidate(req, key)
			return fromEntry(req, e, "stale"), nil
		}
		return t.fetchAndStore(req, key, "miss")

	default:
		resp, err := t.fetchAndStore(req, key, "miss")
		if err == nil {
			return resp, nil
		}
		if e, ok := t.lookup(ctx, key); ok {
			t.log.Info("network failed; serving cached response", "url", req.URL.Path, "error", err)
			return fromEntry(req, e, "fallback"), nil
		}
		return nil, err
	}
}

func (t *Transport) lookup(ctx context.Context, key string) (*Entry, bool) {
	e, ok, err := t.cache.Get(ctx, key)
	if err != nil {
		t.log.Warn("cache read failed", "key", key, "error", err)
		return nil, false
	}
	return e, ok
}

func (t *Transport) fetchAndStore(req *http.Request, key, label string) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}
	if resp.Header == nil {
		resp.Header = http.Header{}
	}
	resp.Header.Set(HeaderCache, label)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCachedBody+1))
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	if len(body) > maxCachedBody {
		// Too big to cache: hand back what was read followed by the rest.
		resp.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(body), resp.Body), resp.Body}
		return resp, nil
	}
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))

	if noStore(resp.Header) {
		return resp, nil
	}
	h := resp.Header.Clone()
	h.Del(HeaderCache)
	if err := t.cache.Put(req.Context(), key, &Entry{Status: resp.StatusCode, Header: h, Body: body}); err != nil {
		t.log.Warn("cache write failed", "key", key, "error", err)
	}
	return resp, nil
}

func (t *Transport) revalidate(req *http.Request, key string) {
	bg := req.Clone(context.WithoutCancel(req.Context()))
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(bg.Context(), t.refresh)
		defer cancel()
		resp, err := t.fetchAndStore(bg.WithContext(ctx), key, "miss")
		if err != nil {
			t.log.Debug("background refresh failed", "url", bg.URL.Path, "error", err)
			return
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
}

// Wait blocks until background refreshes have finished.
func (t *Transport) Wait() {
	t.wg.Wait()
}

func noStore(h http.Header) bool {
	return strings.Contains(strings.ToLower(h.Get("Cache-Control")), "no-store")
}

func fromEntry(req *http.Request, e *Entry, label string) *http.Response {
	h := e.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set(HeaderCache, label)
	h.Set("Age", strconv.FormatInt(int64(time.Since(e.StoredAt).Seconds()), 10))
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status)),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}
