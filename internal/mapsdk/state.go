// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package mapsdk

import (
	"errors"
	"fmt"
	"time"
)

// State is the SDK load state.
type State int

const (
	NotRequested State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case NotRequested:
		return "not_requested"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Settled reports whether s is a terminal state of a load episode.
func (s State) Settled() bool {
	return s == Ready || s == Failed
}

// MarshalText encodes the state name for JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrNoRuntime is returned by a Source that signalled ready without a runtime.
var ErrNoRuntime = errors.New("sdk signalled ready without a runtime")

// LoadError reports that the SDK could not be fetched or initialized.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return "map sdk load failed: " + e.Err.Error()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that no readiness signal arrived in time.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("map sdk not ready after %s", e.After)
}

// FailureKind classifies a load failure for logs and metrics.
func FailureKind(err error) string {
	var te *TimeoutError
	if errors.As(err, &te) {
		return "timeout"
	}
	return "load_error"
}
