// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package markers

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/eventmap/internal/clock"
	"github.com/tomtom215/eventmap/internal/uiloop"
)

// Token groups the timers of one rebuild so they can be cancelled together.
type Token struct {
	cancelled atomic.Bool

	mu     sync.Mutex
	timers []clock.Timer
}

// Cancelled reports whether the token was cancelled.
func (t *Token) Cancelled() bool {
	return t.cancelled.Load()
}

// Cancel stops every timer under the token and returns how many had not
// fired yet. Tasks already posted to the loop check the token and skip.
func (t *Token) Cancel() int {
	if t.cancelled.Swap(true) {
		return 0
	}
	t.mu.Lock()
	timers := t.timers
	t.timers = nil
	t.mu.Unlock()

	stopped := 0
	for _, tm := range timers {
		if tm.Stop() {
			stopped++
		}
	}
	return stopped
}

func (t *Token) add(tm clock.Timer) {
	t.mu.Lock()
	t.timers = append(t.timers, tm)
	t.mu.Unlock()
}

// Scheduler runs delayed tasks on the UI loop under a cancellation token.
// Beginning a new token cancels the previous one.
type Scheduler struct {
	clock    clock.Clock
	dispatch uiloop.Dispatcher
	current  *Token
}

// NewScheduler creates a scheduler.
func NewScheduler(clk clock.Clock, dispatch uiloop.Dispatcher) *Scheduler {
	return &Scheduler{clock: clk, dispatch: dispatch}
}

// Begin cancels the current token and returns a fresh one.
func (s *Scheduler) Begin() *Token {
	s.Cancel()
	s.current = &Token{}
	return s.current
}

// Cancel cancels the current token, if any, and returns the number of timers
// stopped.
func (s *Scheduler) Cancel() int {
	if s.current == nil {
		return 0
	}
	n := s.current.Cancel()
	s.current = nil
	return n
}

// After runs fn on the loop once d has elapsed, unless tok is cancelled
// first.
func (s *Scheduler) After(tok *Token, d time.Duration, fn func()) {
	if tok.Cancelled() {
		return
	}
	tm := s.clock.AfterFunc(d, func() {
		if tok.Cancelled() {
			return
		}
		s.dispatch.Post(func() {
			if tok.Cancelled() {
				return
			}
			fn()
		})
	})
	tok.add(tm)
}
