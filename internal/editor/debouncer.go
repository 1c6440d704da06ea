package editor

import (
	"sort"
	"sync"
	"time"
)

// Debouncer keeps at most one scheduled write per key. Scheduling the same key
// again before the window elapses stops the old timer and starts a new one, so
// only the most recent func runs.
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	pending map[string]*pendingWrite
	seq     uint64
	stopped bool
	running sync.WaitGroup

	// inflight counts writes per key that have left pending and are running.
	inflight map[string]int
	idle     *sync.Cond
}

type keyedWrite struct {
	key string
	fn  func()
}

type pendingWrite struct {
	timer *time.Timer
	fn    func()
	seq   uint64
}

func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	d := &Debouncer{
		window:   window,
		pending:  map[string]*pendingWrite{},
		inflight: map[string]int{},
	}
	d.idle = sync.NewCond(&d.mu)
	return d
}

func (d *Debouncer) Window() time.Duration {
	return d.window
}

// Schedule (re)arms the timer for key with fn. It reports false after Stop.
func (d *Debouncer) Schedule(key string, fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return false
	}
	if p := d.pending[key]; p != nil {
		p.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending[key] = &pendingWrite{
		fn:    fn,
		seq:   seq,
		timer: time.AfterFunc(d.window, func() { d.fire(key, seq) }),
	}
	return true
}

func (d *Debouncer) fire(key string, seq uint64) {
	d.mu.Lock()
	p := d.pending[key]
	// A timer that lost the race with Schedule/Cancel still fires; the
	// sequence number tells us it was superseded.
	if p == nil || p.seq != seq || d.stopped {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.running.Add(1)
	d.beginLocked(key)
	d.mu.Unlock()

	defer d.running.Done()
	d.run(key, p.fn)
}

func (d *Debouncer) beginLocked(key string) {
	d.inflight[key]++
}

// run calls fn for key, which must already be marked in flight.
func (d *Debouncer) run(key string, fn func()) {
	defer func() {
		d.mu.Lock()
		if d.inflight[key]--; d.inflight[key] <= 0 {
			delete(d.inflight, key)
		}
		d.idle.Broadcast()
		d.mu.Unlock()
	}()
	fn()
}

// Wait blocks until no write for key is running. Together with Cancel it
// guarantees nothing for key reaches the remote afterwards.
func (d *Debouncer) Wait(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.inflight[key] > 0 {
		d.idle.Wait()
	}
}

// Cancel drops the pending write for key, if any.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := d.pending[key]
	if p == nil {
		return false
	}
	p.timer.Stop()
	delete(d.pending, key)
	return true
}

// Flush runs the pending write for key now, on the caller's goroutine.
func (d *Debouncer) Flush(key string) bool {
	d.mu.Lock()
	p := d.pending[key]
	if p == nil {
		d.mu.Unlock()
		return false
	}
	p.timer.Stop()
	delete(d.pending, key)
	d.beginLocked(key)
	d.mu.Unlock()

	d.run(key, p.fn)
	return true
}

// FlushAll runs every pending write now, in key order.
func (d *Debouncer) FlushAll() int {
	d.mu.Lock()
	ws := d.takeAllLocked(true)
	d.mu.Unlock()
	for _, w := range ws {
		d.run(w.key, w.fn)
	}
	return len(ws)
}

// CancelAll drops every pending write and returns how many were dropped.
func (d *Debouncer) CancelAll() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.takeAllLocked(false))
}

// takeAllLocked empties pending. With start set the taken writes are marked
// in flight, and the caller must run each of them.
func (d *Debouncer) takeAllLocked(start bool) []keyedWrite {
	keys := make([]string, 0, len(d.pending))
	for k := range d.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ws := make([]keyedWrite, 0, len(keys))
	for _, k := range keys {
		p := d.pending[k]
		p.timer.Stop()
		ws = append(ws, keyedWrite{key: k, fn: p.fn})
		delete(d.pending, k)
		if start {
			d.beginLocked(k)
		}
	}
	return ws
}

// Pending reports whether key has a scheduled write.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending[key] != nil
}

func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop tears the debouncer down. With flush set, pending writes run before
// Stop returns; otherwise they are dropped. Writes already firing are waited
// for either way. Schedule is a no-op afterwards.
func (d *Debouncer) Stop(flush bool) {
	d.mu.Lock()
	d.stopped = true
	ws := d.takeAllLocked(flush)
	d.mu.Unlock()

	if flush {
		for _, w := range ws {
			d.run(w.key, w.fn)
		}
	}
	d.running.Wait()
}
