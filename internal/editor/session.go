// Package editor keeps the live block/widget list of one chapter in memory and
// synchronizes it with the API.
//
// Local state is mutated first (optimistic) and is only a cache: the server
// owns ordering and persistence, and the list is re-fetched on Load.
package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"bookcraft-cli/internal/api"
	"bookcraft-cli/internal/logger"
	"bookcraft-cli/internal/model"
	"bookcraft-cli/internal/widget"
)

const (
	DefaultDebounce     = 500 * time.Millisecond
	defaultWriteTimeout = 15 * time.Second
)

var (
	ErrNoChapter     = errors.New("no chapter loaded")
	ErrUnknownBlock  = errors.New("block not found in session")
	ErrUnknownWidget = errors.New("widget not found in session")
	ErrClosed        = errors.New("editing session closed")
)

// Remote is the subset of the API the session writes through.
type Remote interface {
	ListBlocks(ctx context.Context, chapterID string) ([]model.Block, error)
	CreateBlock(ctx context.Context, chapterID string, layout model.LayoutType) (*model.Block, error)
	UpdateBlockStyle(ctx context.Context, blockID string, style model.BlockStyle) error
	DeleteBlock(ctx context.Context, blockID string) error
	ReorderBlocks(ctx context.Context, chapterID string, order []model.OrderEntry) error
	CreateWidget(ctx context.Context, blockID string, in api.WidgetInput) (*model.Widget, error)
	UpdateWidget(ctx context.Context, widgetID string, data json.RawMessage) error
	DeleteWidget(ctx context.Context, widgetID string) error
}

type Options struct {
	// Debounce is the coalescing window for style/data writes (default 500ms).
	Debounce time.Duration
	// WriteTimeout bounds each debounced write (default 15s).
	WriteTimeout time.Duration
	// DiscardOnClose drops unflushed writes on Close/Load instead of sending them.
	DiscardOnClose bool

	Logger *logger.Logger
	// OnError receives failures of debounced writes, which have no caller to return to.
	OnError func(op, id string, err error)
}

type Session struct {
	remote Remote
	opts   Options
	log    *logger.Logger
	deb    *Debouncer

	mu        sync.Mutex
	chapterID string
	blocks    []model.Block
	closed    bool
}

func NewSession(remote Remote, opts Options) *Session {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Session{
		remote: remote,
		opts:   opts,
		log:    log.With("component", "editor"),
		deb:    NewDebouncer(opts.Debounce),
	}
}

func blockKey(id string) string  { return "block:" + id }
func widgetKey(id string) string { return "widget:" + id }

// Load makes chapterID the live chapter. Pending writes of the previous
// chapter are flushed (or dropped with DiscardOnClose) first.
func (s *Session) Load(ctx context.Context, chapterID string) error {
	chapterID = strings.TrimSpace(chapterID)
	if chapterID == "" {
		return ErrNoChapter
	}
	if s.isClosed() {
		return ErrClosed
	}
	s.settlePending()

	blocks, err := s.remote.ListBlocks(ctx, chapterID)
	if err != nil {
		s.log.Warn("load blocks failed", "chapter", chapterID, "error", err)
		return err
	}
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Order < blocks[j].Order })
	for i := range blocks {
		if blocks[i].Widgets == nil {
			blocks[i].Widgets = []model.Widget{}
		}
	}

	s.mu.Lock()
	s.chapterID = chapterID
	s.blocks = blocks
	s.mu.Unlock()
	return nil
}

func (s *Session) settlePending() {
	if s.opts.DiscardOnClose {
		if n := s.deb.CancelAll(); n > 0 {
			s.log.Info("dropped unflushed edits", "count", n)
		}
		return
	}
	s.deb.FlushAll()
}

func (s *Session) ChapterID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chapterID
}

// Blocks returns a copy of the live list in display order.
func (s *Session) Blocks() []model.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneBlocks(s.blocks)
}

func (s *Session) Block(id string) (model.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := model.FindBlock(s.blocks, id)
	if i < 0 {
		return model.Block{}, false
	}
	return cloneBlock(s.blocks[i]), true
}

func (s *Session) Widget(id string) (model.Widget, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bi, wi := model.FindWidget(s.blocks, id)
	if bi < 0 {
		return model.Widget{}, false
	}
	return cloneWidget(s.blocks[bi].Widgets[wi]), true
}

// PendingWrites is the number of scheduled, unsent writes.
func (s *Session) PendingWrites() int {
	return s.deb.Len()
}

// CreateBlock asks the server for a new block and appends it on success.
// Nothing is added locally before the server answers, so failure needs no
// rollback.
func (s *Session) CreateBlock(ctx context.Context, layout model.LayoutType) (*model.Block, error) {
	chapterID := s.ChapterID()
	if chapterID == "" {
		return nil, ErrNoChapter
	}
	b, err := s.remote.CreateBlock(ctx, chapterID, layout)
	if err != nil {
		s.log.Warn("create block failed", "chapter", chapterID, "layout", layout, "error", err)
		return nil, err
	}
	if b.Widgets == nil {
		b.Widgets = []model.Widget{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chapterID != chapterID {
		// Navigated away while the request was in flight.
		return nil, fmt.Errorf("chapter changed during create")
	}
	s.blocks = append(s.blocks, *b)
	out := cloneBlock(*b)
	return &out, nil
}

// SwapBlocks swaps two blocks locally, then persists the whole order. If the
// persist fails the swap is applied again in reverse.
func (s *Session) SwapBlocks(ctx context.Context, firstID, secondID string) error {
	if firstID == secondID {
		return nil
	}

	s.mu.Lock()
	chapterID := s.chapterID
	if err := s.swapLocked(firstID, secondID); err != nil {
		s.mu.Unlock()
		return err
	}
	order := orderOf(s.blocks)
	s.mu.Unlock()

	if err := s.remote.ReorderBlocks(ctx, chapterID, order); err != nil {
		s.log.Warn("persist block order failed; reverting", "chapter", chapterID, "first", firstID, "second", secondID, "error", err)
		s.mu.Lock()
		if s.chapterID == chapterID {
			_ = s.swapLocked(secondID, firstID)
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Session) swapLocked(firstID, secondID string) error {
	i := model.FindBlock(s.blocks, firstID)
	j := model.FindBlock(s.blocks, secondID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownBlock, firstID)
	}
	if j < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownBlock, secondID)
	}
	s.blocks[i], s.blocks[j] = s.blocks[j], s.blocks[i]
	s.blocks[i].Order, s.blocks[j].Order = s.blocks[j].Order, s.blocks[i].Order
	return nil
}

func orderOf(blocks []model.Block) []model.OrderEntry {
	out := make([]model.OrderEntry, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, model.OrderEntry{ID: b.ID, Order: b.Order})
	}
	return out
}

// UpdateBlockStyle applies style locally and schedules a debounced write.
func (s *Session) UpdateBlockStyle(blockID string, style model.BlockStyle) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	i := model.FindBlock(s.blocks, blockID)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownBlock, blockID)
	}
	s.blocks[i].Style = style
	s.mu.Unlock()

	s.deb.Schedule(blockKey(blockID), func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.WriteTimeout)
		defer cancel()
		if err := s.remote.UpdateBlockStyle(ctx, blockID, style); err != nil {
			s.reportAsync("update block style", blockID, err)
		}
	})
	return nil
}

// UpdateWidget applies data locally and schedules a debounced write. Rapid
// edits to the same widget coalesce into one write of the last value.
func (s *Session) UpdateWidget(widgetID string, data json.RawMessage) error {
	data = append(json.RawMessage{}, data...)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	bi, wi := model.FindWidget(s.blocks, widgetID)
	if bi < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownWidget, widgetID)
	}
	s.blocks[bi].Widgets[wi].Data = data
	s.mu.Unlock()

	s.deb.Schedule(widgetKey(widgetID), func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.WriteTimeout)
		defer cancel()
		if err := s.remote.UpdateWidget(ctx, widgetID, data); err != nil {
			s.reportAsync("update widget", widgetID, err)
		}
	})
	return nil
}

// UpdateWidgetPayload validates p against the widget's type before scheduling
// the write.
func (s *Session) UpdateWidgetPayload(widgetID string, p widget.Payload) error {
	w, ok := s.Widget(widgetID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWidget, widgetID)
	}
	if p.Type() != w.Type {
		return fmt.Errorf("payload type %s does not match widget type %s", p.Type(), w.Type)
	}
	raw, err := widget.Encode(p)
	if err != nil {
		return err
	}
	return s.UpdateWidget(widgetID, raw)
}

// RemoveBlock cancels pending writes for the block and its widgets, deletes it
// on the server, and drops it locally only after the server confirms.
func (s *Session) RemoveBlock(ctx context.Context, blockID string) error {
	b, ok := s.Block(blockID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBlock, blockID)
	}
	s.deb.Cancel(blockKey(blockID))
	for _, w := range b.Widgets {
		s.deb.Cancel(widgetKey(w.ID))
	}
	s.deb.Wait(blockKey(blockID))
	for _, w := range b.Widgets {
		s.deb.Wait(widgetKey(w.ID))
	}

	if err := s.remote.DeleteBlock(ctx, blockID); err != nil {
		s.log.Warn("delete block failed", "block", blockID, "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := model.FindBlock(s.blocks, blockID); i >= 0 {
		s.blocks = append(s.blocks[:i], s.blocks[i+1:]...)
	}
	return nil
}

// AddWidget validates p, creates the widget at (row, col) of the block, and
// appends it locally on success.
func (s *Session) AddWidget(ctx context.Context, blockID string, p widget.Payload, row, col int) (*model.Widget, error) {
	b, ok := s.Block(blockID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBlock, blockID)
	}
	if !b.Layout.Fits(row, col) {
		return nil, fmt.Errorf("slot (%d,%d) is outside the %s layout", row, col, b.Layout)
	}
	raw, err := widget.Encode(p)
	if err != nil {
		return nil, err
	}

	w, err := s.remote.CreateWidget(ctx, blockID, api.WidgetInput{
		Type:   p.Type(),
		Row:    row,
		Column: col,
		Data:   raw,
	})
	if err != nil {
		s.log.Warn("create widget failed", "block", blockID, "type", p.Type(), "error", err)
		return nil, err
	}
	if w.BlockID == "" {
		w.BlockID = blockID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := model.FindBlock(s.blocks, blockID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBlock, blockID)
	}
	s.blocks[i].Widgets = append(s.blocks[i].Widgets, *w)
	out := cloneWidget(*w)
	return &out, nil
}

// RemoveWidget cancels any pending write for the widget, and waits for one
// already on the wire, before deleting it, so a late write cannot resurrect
// data on a deleted widget.
func (s *Session) RemoveWidget(ctx context.Context, widgetID string) error {
	if _, ok := s.Widget(widgetID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWidget, widgetID)
	}
	s.deb.Cancel(widgetKey(widgetID))
	s.deb.Wait(widgetKey(widgetID))

	if err := s.remote.DeleteWidget(ctx, widgetID); err != nil {
		s.log.Warn("delete widget failed", "widget", widgetID, "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if bi, wi := model.FindWidget(s.blocks, widgetID); bi >= 0 {
		ws := s.blocks[bi].Widgets
		s.blocks[bi].Widgets = append(ws[:wi], ws[wi+1:]...)
	}
	return nil
}

// Flush sends every pending write now.
func (s *Session) Flush() int {
	return s.deb.FlushAll()
}

// Close tears the session down. Pending writes are flushed unless
// DiscardOnClose is set; no write is sent after Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.opts.DiscardOnClose {
		if n := s.deb.Len(); n > 0 {
			s.log.Info("dropping unflushed edits on close", "count", n)
		}
	}
	s.deb.Stop(!s.opts.DiscardOnClose)
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) reportAsync(op, id string, err error) {
	s.log.Warn(op+" failed", "id", id, "error", err)
	if s.opts.OnError != nil {
		s.opts.OnError(op, id, err)
	}
}

func cloneBlocks(in []model.Block) []model.Block {
	out := make([]model.Block, len(in))
	for i := range in {
		out[i] = cloneBlock(in[i])
	}
	return out
}

func cloneBlock(b model.Block) model.Block {
	ws := make([]model.Widget, len(b.Widgets))
	for i := range b.Widgets {
		ws[i] = cloneWidget(b.Widgets[i])
	}
	b.Widgets = ws
	return b
}

func cloneWidget(w model.Widget) model.Widget {
	w.Data = append(json.RawMessage{}, w.Data...)
	return w
}
