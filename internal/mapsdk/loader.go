// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package mapsdk

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/eventmap/internal/clock"
	"github.com/tomtom215/eventmap/internal/logging"
	"github.com/tomtom215/eventmap/internal/metrics"
)

// DefaultLoadTimeout bounds how long a load episode waits for readiness.
const DefaultLoadTimeout = 5 * time.Second

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// Timeout for one load episode. Default: DefaultLoadTimeout.
	Timeout time.Duration
	// Clock drives the timeout. Default: system clock.
	Clock clock.Clock
}

// Loader loads the SDK once and shares the outcome with every caller.
type Loader struct {
	source  Source
	clock   clock.Clock
	timeout time.Duration
	logger  zerolog.Logger

	mu        sync.Mutex
	state     State
	episode   uint64
	attempts  int
	runtime   Runtime
	err       error
	waiters   []func(State)
	timer     clock.Timer
	cancel    context.CancelFunc
	startedAt time.Time
}

// NewLoader creates a loader in the NotRequested state.
func NewLoader(source Source, opts LoaderOptions) *Loader {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultLoadTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewSystem()
	}
	metrics.SetSDKState(metrics.SDKStateNotRequested)
	return &Loader{
		source:  source,
		clock:   opts.Clock,
		timeout: opts.Timeout,
		logger:  logging.WithComponent("mapsdk"),
	}
}

// State returns the current load state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Runtime returns the initialized SDK, or nil unless the state is Ready.
func (l *Loader) Runtime() Runtime {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runtime
}

// Err returns the failure of the last episode, or nil.
func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Attempts returns how many times Source.Load has been called.
func (l *Loader) Attempts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts
}

// Request starts a load episode if none has been requested and calls fn
// once the episode settles. If the loader has already settled, fn runs
// immediately on the calling goroutine. fn may be nil.
func (l *Loader) Request(fn func(State)) {
	l.mu.Lock()
	switch l.state {
	case Ready, Failed:
		state := l.state
		l.mu.Unlock()
		if fn != nil {
			fn(state)
		}
		return
	case Loading:
		if fn != nil {
			l.waiters = append(l.waiters, fn)
		}
		l.mu.Unlock()
		return
	}

	// NotRequested: this caller starts the episode.
	if fn != nil {
		l.waiters = append(l.waiters, fn)
	}
	l.episode++
	l.attempts++
	ep := l.episode
	l.state = Loading
	l.err = nil
	l.startedAt = l.clock.Now()
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.timer = l.clock.AfterFunc(l.timeout, func() {
		l.settle(ep, "timeout", nil, &TimeoutError{After: l.timeout})
	})
	attempt := l.attempts
	l.mu.Unlock()

	metrics.SetSDKState(metrics.SDKStateLoading)
	l.logger.Info().Int("attempt", attempt).Dur("timeout", l.timeout).Msg("loading map sdk")

	l.source.Load(ctx, Callbacks{
		Ready: func(rt Runtime) {
			if rt == nil {
				l.settle(ep, "fail", nil, &LoadError{Err: ErrNoRuntime})
				return
			}
			l.settle(ep, "ready", rt, nil)
		},
		Fail: func(err error) {
			l.settle(ep, "fail", nil, &LoadError{Err: err})
		},
	})
}

// OnSettled calls fn once the current or next episode settles, without
// starting a load.
func (l *Loader) OnSettled(fn func(State)) {
	l.mu.Lock()
	if l.state.Settled() {
		state := l.state
		l.mu.Unlock()
		fn(state)
		return
	}
	l.waiters = append(l.waiters, fn)
	l.mu.Unlock()
}

// EnsureLoaded starts loading if needed and blocks until the episode settles
// or ctx is done. The returned error is the episode failure, if any.
func (l *Loader) EnsureLoaded(ctx context.Context) (State, error) {
	done := make(chan State, 1)
	l.Request(func(s State) { done <- s })
	select {
	case s := <-done:
		return s, l.Err()
	case <-ctx.Done():
		return l.State(), ctx.Err()
	}
}

// Retry resets a failed loader to NotRequested so the next request starts a
// new episode. It reports false in any other state.
func (l *Loader) Retry() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Failed {
		return false
	}
	l.state = NotRequested
	l.err = nil
	metrics.SetSDKState(metrics.SDKStateNotRequested)
	l.logger.Info().Int("attempts", l.attempts).Msg("map sdk retry requested")
	return true
}

// settle resolves episode ep. Signals for a stale or already settled episode
// are dropped.
func (l *Loader) settle(ep uint64, signal string, rt Runtime, err error) {
	l.mu.Lock()
	if ep != l.episode || l.state != Loading {
		l.mu.Unlock()
		metrics.RecordSDKLateSignal(signal)
		l.logger.Debug().Str("signal", signal).Uint64("episode", ep).Msg("ignoring late sdk signal")
		return
	}

	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}

	elapsed := l.clock.Now().Sub(l.startedAt)
	if err == nil {
		l.state = Ready
		l.runtime = rt
	} else {
		l.state = Failed
		l.err = err
	}
	state := l.state
	waiters := l.waiters
	l.waiters = nil
	l.mu.Unlock()

	if err == nil {
		metrics.SetSDKState(metrics.SDKStateReady)
		metrics.RecordSDKLoad("ready", elapsed)
		l.logger.Info().Dur("elapsed", elapsed).Msg("map sdk ready")
	} else {
		kind := FailureKind(err)
		metrics.SetSDKState(metrics.SDKStateFailed)
		metrics.RecordSDKLoad(kind, elapsed)
		l.logger.Warn().Err(err).Str("kind", kind).Dur("elapsed", elapsed).Msg("map sdk failed")
	}

	for _, fn := range waiters {
		fn(state)
	}
}
