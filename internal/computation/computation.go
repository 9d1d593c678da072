// Package computation tracks the single authoritative in-flight background
// computation of an owner.
//
// A Slot holds at most one current Token. Beginning a new computation swaps
// a fresh token into the slot and disposes the one it replaced, which makes
// the older computation stale: it may keep running, but IsCurrent reports
// false and its result must be dropped. Cancellation is cooperative; a token
// context is cancelled on disposal so slow work can stop early if it wants.
package computation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Token identifies one scheduled unit of background work.
type Token struct {
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
	disposed   atomic.Bool
}

// Generation returns the token generation. Generations increase with every
// Begin on the same slot.
func (t *Token) Generation() uint64 {
	return t.generation
}

// Context returns a context cancelled when the token is disposed.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Disposed reports whether the token has been disposed, either because it
// was superseded or because its computation finished.
func (t *Token) Disposed() bool {
	return t.disposed.Load()
}

func (t *Token) String() string {
	return fmt.Sprintf("computation#%d", t.generation)
}

// dispose marks the token terminal. Disposing twice means the slot
// bookkeeping is broken, which is a programming error.
func (t *Token) dispose() {
	if !t.disposed.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("computation: %s disposed twice", t))
	}
	t.cancel()
}

// Slot is the "current computation" reference of an owner.
type Slot struct {
	mu         sync.Mutex
	current    *Token
	generation uint64
	closed     bool
}

// Begin creates a new current token and disposes the token it supersedes.
// On a closed slot Begin returns an already disposed token that is never
// current.
func (s *Slot) Begin(parent context.Context) *Token {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	s.generation++
	tok := &Token{generation: s.generation, ctx: ctx, cancel: cancel}
	if s.closed {
		s.mu.Unlock()
		tok.dispose()
		return tok
	}
	prev := s.current
	s.current = tok
	s.mu.Unlock()

	if prev != nil {
		prev.dispose()
	}
	return tok
}

// IsCurrent reports whether tok is still the authoritative computation.
func (s *Slot) IsCurrent(tok *Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current == tok
}

// IsLatest reports whether tok is the most recently issued token, whether or
// not it has finished. A result computed under tok may be applied only while
// this holds: once a newer Begin happens the result is stale.
func (s *Slot) IsLatest(tok *Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.generation == tok.generation
}

// Current returns the current token, or nil.
func (s *Slot) Current() *Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Finish ends tok's computation. If tok is still current the slot is cleared
// and tok disposed; a superseded token was already disposed when it was
// swapped out and is left alone. Finish reports whether tok was current.
func (s *Slot) Finish(tok *Token) bool {
	s.mu.Lock()
	if s.current != tok {
		s.mu.Unlock()
		return false
	}
	s.current = nil
	s.mu.Unlock()

	tok.dispose()
	return true
}

// Close disposes the current token, if any, and makes every later Begin
// return a stale token.
func (s *Slot) Close() {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.closed = true
	s.mu.Unlock()

	if prev != nil {
		prev.dispose()
	}
}
