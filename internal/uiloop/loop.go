// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

// Package uiloop runs the map controllers on a single owner goroutine.
//
// The map view, marker controller and popup manager are not safe for
// concurrent use. Every mutation reaches them through a Dispatcher: timers,
// SDK load callbacks, websocket input and catalog updates Post a task; HTTP
// handlers that need an answer use Do. Tasks run one at a time in the order
// they were posted.
package uiloop

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/tomtom215/eventmap/internal/logging"
)

// ErrStopped is returned by Do when the loop is not running.
var ErrStopped = errors.New("ui loop stopped")

// Dispatcher schedules a task on the owner goroutine.
type Dispatcher interface {
	// Post enqueues fn. It reports false if the task was dropped because
	// the loop has stopped. Post blocks while the queue is full, so a task
	// already running on the loop must not Post and wait on the result.
	Post(fn func()) bool
}

// Loop is a serial task queue drained by Serve.
type Loop struct {
	name  string
	tasks chan func()
	done  chan struct{}
}

// New creates a loop with the given queue capacity.
func New(name string, buffer int) *Loop {
	if buffer <= 0 {
		buffer = 256
	}
	return &Loop{
		name:  name,
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Serve runs tasks until ctx is cancelled. A panicking task is logged and
// the loop keeps going. Serve must be called at most once.
func (l *Loop) Serve(ctx context.Context) error {
	defer close(l.done)
	logger := logging.WithComponent("uiloop").With().Str("loop", l.name).Logger()
	logger.Debug().Msg("ui loop started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("ui loop stopped")
			return ctx.Err()
		case fn := <-l.tasks:
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Str("loop", l.name).
				Str("panic", fmt.Sprint(r)).
				Str("stack", string(debug.Stack())).
				Msg("ui task panicked")
		}
	}()
	fn()
}

// String returns the loop name; the supervisor uses it in logs.
func (l *Loop) String() string {
	return l.name
}

// Post enqueues fn. It blocks while the queue is full and drops the task
// once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from a task running on the same loop.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inline runs tasks immediately on the calling goroutine. Tests use it
// together with clock.Fake to drive controllers synchronously.
type Inline struct{}

// Post runs fn now.
func (Inline) Post(fn func()) bool {
	fn()
	return true
}

// Do runs fn now.
func (Inline) Do(_ context.Context, fn func()) error {
	fn()
	return nil
}

// Runner is a Dispatcher that can also run a task synchronously.
type Runner interface {
	Dispatcher
	Do(ctx context.Context, fn func()) error
}

var (
	_ Runner = (*Loop)(nil)
	_ Runner = Inline{}
)
