// Package dnd turns pointer and keyboard gestures into pairwise swaps.
//
// Dropping an item on a different item swaps the two. Arbitrary-position
// insertion is available as Move but the editor does not use it.
package dnd

import (
	"errors"
	"math"
	"strings"
	"sync"
)

// DefaultActivationDistance separates a click from a drag start.
const DefaultActivationDistance = 8.0

type Swap struct {
	From string
	To   string
}

type Point struct {
	X, Y float64
}

// Overlay mirrors the dragged item at the pointer, independent of list layout.
type Overlay struct {
	Active   bool
	ID       string
	Position Point
	Keyboard bool
}

type phase int

const (
	idle phase = iota
	pressed
	dragging
)

// Sensor tracks one gesture at a time. It is safe for concurrent use.
type Sensor struct {
	ActivationDistance float64

	mu       sync.Mutex
	phase    phase
	keyboard bool
	id       string
	origin   Point
	pos      Point
	over     string
}

func NewSensor() *Sensor {
	return &Sensor{ActivationDistance: DefaultActivationDistance}
}

func (s *Sensor) threshold() float64 {
	if s.ActivationDistance <= 0 {
		return DefaultActivationDistance
	}
	return s.ActivationDistance
}

// PointerDown records a press on id. No drag starts until the pointer has moved
// at least ActivationDistance away.
func (s *Sensor) PointerDown(id string, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id = strings.TrimSpace(id)
	if id == "" {
		s.resetLocked()
		return
	}
	s.phase = pressed
	s.keyboard = false
	s.id = id
	s.origin = Point{x, y}
	s.pos = s.origin
	s.over = ""
}

// PointerMove updates the pointer and reports whether a drag is active.
func (s *Sensor) PointerMove(x, y float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == idle || s.keyboard {
		return false
	}
	s.pos = Point{x, y}
	if s.phase == pressed && math.Hypot(x-s.origin.X, y-s.origin.Y) >= s.threshold() {
		s.phase = dragging
	}
	return s.phase == dragging
}

// PointerUp ends the gesture over overID. A press that never crossed the
// activation distance is a click and yields nothing.
func (s *Sensor) PointerUp(overID string) (Swap, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keyboard {
		return Swap{}, false
	}
	active := s.phase == dragging
	from := s.id
	s.resetLocked()
	if !active {
		return Swap{}, false
	}
	return swapFor(from, overID)
}

// Pick starts a keyboard drag of id. Keyboard drags need no activation distance.
func (s *Sensor) Pick(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	s.phase = dragging
	s.keyboard = true
	s.id = id
	s.over = id
	s.origin = Point{}
	s.pos = Point{}
	return true
}

// Over sets the current keyboard drop target.
func (s *Sensor) Over(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == dragging && s.keyboard {
		s.over = strings.TrimSpace(id)
	}
}

func (s *Sensor) Drop() (Swap, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != dragging || !s.keyboard {
		s.resetLocked()
		return Swap{}, false
	}
	from, to := s.id, s.over
	s.resetLocked()
	return swapFor(from, to)
}

func (s *Sensor) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Sensor) Dragging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == dragging
}

func (s *Sensor) Overlay() Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != dragging {
		return Overlay{}
	}
	return Overlay{Active: true, ID: s.id, Position: s.pos, Keyboard: s.keyboard}
}

// Target is the id the active drag is currently over (keyboard only).
func (s *Sensor) Target() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != dragging {
		return ""
	}
	return s.over
}

func (s *Sensor) resetLocked() {
	s.phase = idle
	s.keyboard = false
	s.id = ""
	s.over = ""
	s.origin = Point{}
	s.pos = Point{}
}

func swapFor(from, to string) (Swap, bool) {
	to = strings.TrimSpace(to)
	if from == "" || to == "" || from == to {
		return Swap{}, false
	}
	return Swap{From: from, To: to}, true
}

var ErrNotFound = errors.New("id not in list")

// ApplySwap returns a copy of ids with a and b exchanged.
func ApplySwap(ids []string, a, b string) ([]string, error) {
	out := append([]string{}, ids...)
	i, j := indexOf(out, a), indexOf(out, b)
	if i < 0 || j < 0 {
		return nil, ErrNotFound
	}
	out[i], out[j] = out[j], out[i]
	return out, nil
}

// Move returns a copy of ids with the element at from removed and reinserted
// at index to (clamped), shifting everything in between.
func Move(ids []string, from, to int) []string {
	out := append([]string{}, ids...)
	if from < 0 || from >= len(out) {
		return out
	}
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	if to < 0 {
		to = 0
	}
	if to > len(out) {
		to = len(out)
	}
	out = append(out, "")
	copy(out[to+1:], out[to:])
	out[to] = moved
	return out
}

func indexOf(ids []string, id string) int {
	for i := range ids {
		if ids[i] == id {
			return i
		}
	}
	return -1
}
