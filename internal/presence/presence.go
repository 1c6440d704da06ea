// Package presence announces and tracks who is editing which chapter.
//
// Occupancy is advisory: joining a chapter locks nothing, and the server's
// last write still wins. The client only reports and renders occupancy.
package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"bookcraft-cli/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	DefaultPath  = "/ws/presence"
	writeTimeout = 10 * time.Second
)

var ErrClosed = errors.New("presence connection closed")

// Occupant is one connection editing a chapter, optionally focused on a block.
type Occupant struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId,omitempty"`
	Name         string `json:"name,omitempty"`
	BlockID      string `json:"blockId,omitempty"`
}

// frame is the wire message in both directions.
type frame struct {
	Type         string     `json:"type"`
	ChapterID    string     `json:"chapterId"`
	ConnectionID string     `json:"connectionId,omitempty"`
	BlockID      string     `json:"blockId,omitempty"`
	Occupant     *Occupant  `json:"occupant,omitempty"`
	Occupants    []Occupant `json:"occupants,omitempty"`
}

const (
	typeJoin      = "join"
	typeLeave     = "leave"
	typeFocus     = "focus"
	typeOccupancy = "occupancy"
)

// Change tells subscribers that the occupancy of ChapterID changed.
type Change struct {
	ChapterID string
	Occupants []Occupant
}

type Client struct {
	conn *websocket.Conn
	id   string
	log  *logger.Logger

	writeMu sync.Mutex

	mu      sync.RWMutex
	rooms   map[string]map[string]Occupant
	held    map[string]bool
	readErr error

	changes   chan Change
	done      chan struct{}
	closeOnce sync.Once
}

type Option func(*dialOptions)

type dialOptions struct {
	log    *logger.Logger
	dialer *websocket.Dialer
	header http.Header
}

func WithLogger(l *logger.Logger) Option {
	return func(o *dialOptions) {
		if l != nil {
			o.log = l
		}
	}
}

func WithDialer(d *websocket.Dialer) Option {
	return func(o *dialOptions) {
		if d != nil {
			o.dialer = d
		}
	}
}

// WithHeader adds extra handshake headers.
func WithHeader(h http.Header) Option {
	return func(o *dialOptions) {
		for k, vs := range h {
			for _, v := range vs {
				o.header.Add(k, v)
			}
		}
	}
}

// URLFor derives the presence endpoint from the API origin.
func URLFor(apiBase *url.URL) string {
	u := *apiBase
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = DefaultPath
	u.RawQuery = ""
	return u.String()
}

// Dial opens the presence channel at wsURL authenticated with token.
func Dial(ctx context.Context, wsURL, token string, opts ...Option) (*Client, error) {
	o := dialOptions{
		log:    logger.Nop(),
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		header: http.Header{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if tok := strings.TrimSpace(token); tok != "" {
		o.header.Set("Authorization", "Bearer "+tok)
	}

	conn, resp, err := o.dialer.DialContext(ctx, wsURL, o.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("presence: dial %s: %s: %w", wsURL, resp.Status, err)
		}
		return nil, fmt.Errorf("presence: dial %s: %w", wsURL, err)
	}

	c := &Client{
		conn:    conn,
		id:      uuid.NewString(),
		log:     o.log.With("component", "presence"),
		rooms:   map[string]map[string]Occupant{},
		held:    map[string]bool{},
		changes: make(chan Change, 32),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// ID is this connection's id, sent with every frame.
func (c *Client) ID() string { return c.id }

// Changes delivers occupancy updates. It is closed when the connection ends.
func (c *Client) Changes() <-chan Change { return c.changes }

// Done is closed when the read loop exits.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err is the read error that ended the connection, if any.
func (c *Client) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.readErr
}

func (c *Client) Join(chapterID string) error {
	chapterID = strings.TrimSpace(chapterID)
	if chapterID == "" {
		return errors.New("presence: missing chapter id")
	}
	if err := c.send(frame{Type: typeJoin, ChapterID: chapterID, ConnectionID: c.id}); err != nil {
		return err
	}
	c.mu.Lock()
	c.held[chapterID] = true
	c.mu.Unlock()
	return nil
}

func (c *Client) Leave(chapterID string) error {
	chapterID = strings.TrimSpace(chapterID)
	c.mu.Lock()
	delete(c.held, chapterID)
	c.mu.Unlock()
	return c.send(frame{Type: typeLeave, ChapterID: chapterID, ConnectionID: c.id})
}

// Focus announces the block being edited within a joined chapter.
func (c *Client) Focus(chapterID, blockID string) error {
	return c.send(frame{Type: typeFocus, ChapterID: chapterID, ConnectionID: c.id, BlockID: blockID})
}

// Occupants returns everyone in chapterID, including this connection.
func (c *Client) Occupants(chapterID string) []Occupant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedOccupants(c.rooms[chapterID])
}

// Others returns the occupants of chapterID excluding this connection.
func (c *Client) Others(chapterID string) []Occupant {
	all := c.Occupants(chapterID)
	out := all[:0]
	for _, o := range all {
		if o.ConnectionID != c.id {
			out = append(out, o)
		}
	}
	return out
}

// Close leaves every held chapter (best effort) and closes the connection.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		held := make([]string, 0, len(c.held))
		for id := range c.held {
			held = append(held, id)
		}
		c.held = map[string]bool{}
		c.mu.Unlock()
		sort.Strings(held)

		for _, id := range held {
			if lerr := c.send(frame{Type: typeLeave, ChapterID: id, ConnectionID: c.id}); lerr != nil {
				c.log.Debug("leave on close failed", "chapter", id, "error", lerr)
			}
		}
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
		<-c.done
	})
	return err
}

func (c *Client) send(f frame) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer close(c.changes)
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.mu.Lock()
				c.readErr = err
				c.mu.Unlock()
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.log.Debug("ignoring malformed frame", "error", err)
			continue
		}
		if ch, ok := c.apply(f); ok {
			c.publish(ch)
		}
	}
}

func (c *Client) apply(f frame) (Change, bool) {
	chapterID := strings.TrimSpace(f.ChapterID)
	if chapterID == "" {
		return Change{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	room := c.rooms[chapterID]
	switch f.Type {
	case typeOccupancy:
		room = map[string]Occupant{}
		for _, o := range f.Occupants {
			if o.ConnectionID != "" {
				room[o.ConnectionID] = o
			}
		}
	case typeJoin, typeFocus:
		o := occupantOf(f)
		if o.ConnectionID == "" {
			return Change{}, false
		}
		if room == nil {
			room = map[string]Occupant{}
		}
		if prev, ok := room[o.ConnectionID]; ok && f.Type == typeFocus {
			prev.BlockID = o.BlockID
			o = prev
		}
		room[o.ConnectionID] = o
	case typeLeave:
		o := occupantOf(f)
		delete(room, o.ConnectionID)
	default:
		return Change{}, false
	}
	if len(room) == 0 {
		delete(c.rooms, chapterID)
	} else {
		c.rooms[chapterID] = room
	}
	return Change{ChapterID: chapterID, Occupants: sortedOccupants(room)}, true
}

// publish never blocks the read loop; a slow subscriber misses intermediate
// changes but can always read the latest state via Occupants.
func (c *Client) publish(ch Change) {
	select {
	case c.changes <- ch:
	default:
		c.log.Debug("dropping presence change; subscriber is slow", "chapter", ch.ChapterID)
	}
}

func occupantOf(f frame) Occupant {
	if f.Occupant != nil {
		o := *f.Occupant
		if o.ConnectionID == "" {
			o.ConnectionID = f.ConnectionID
		}
		if o.BlockID == "" {
			o.BlockID = f.BlockID
		}
		return o
	}
	return Occupant{ConnectionID: f.ConnectionID, BlockID: f.BlockID}
}

func sortedOccupants(room map[string]Occupant) []Occupant {
	out := make([]Occupant, 0, len(room))
	for _, o := range room {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ConnectionID < out[j].ConnectionID
	})
	return out
}

// Label renders occupants as a short comma-separated list of names.
func Label(occ []Occupant) string {
	names := make([]string, 0, len(occ))
	for _, o := range occ {
		n := strings.TrimSpace(o.Name)
		if n == "" {
			n = o.UserID
		}
		if n == "" {
			n = "someone"
		}
		names = append(names, n)
	}
	return strings.Join(names, ", ")
}
