// Package state holds small client-side stores: the current selection, the
// open modal, and the alert queue.
//
// Stores are plain values constructed by the caller and passed where needed;
// there are no package-level instances.
package state

import (
	"sort"
	"sync"
)

// Reducer computes the next state for an action. It must not mutate s.
type Reducer[S any, A any] func(s S, a A) S

// Store is a reducer-driven container, safe for concurrent use.
type Store[S any, A any] struct {
	reduce Reducer[S, A]

	mu     sync.RWMutex
	state  S
	nextID int
	subs   map[int]func(S)
}

func NewStore[S any, A any](initial S, reduce Reducer[S, A]) *Store[S, A] {
	return &Store[S, A]{reduce: reduce, state: initial, subs: map[int]func(S){}}
}

func (s *Store[S, A]) Get() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch applies a and notifies subscribers with the new state, outside the
// lock, in subscription order.
func (s *Store[S, A]) Dispatch(a A) S {
	s.mu.Lock()
	s.state = s.reduce(s.state, a)
	next := s.state
	subs := s.subscribersLocked()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next
}

// Subscribe registers fn and returns a func that removes it.
func (s *Store[S, A]) Subscribe(fn func(S)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store[S, A]) subscribersLocked() []func(S) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(S), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subs[id])
	}
	return out
}
