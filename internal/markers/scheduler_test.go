// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package markers

import (
	"testing"
	"time"

	"github.com/tomtom215/eventmap/internal/clock"
	"github.com/tomtom215/eventmap/internal/uiloop"
)

func TestScheduler_BeginCancelsPrevious(t *testing.T) {
	clk := clock.NewFake(epoch)
	s := NewScheduler(clk, uiloop.Inline{})

	var ran []string
	first := s.Begin()
	s.After(first, 10*time.Millisecond, func() { ran = append(ran, "first") })
	second := s.Begin()
	s.After(second, 10*time.Millisecond, func() { ran = append(ran, "second") })

	if !first.Cancelled() {
		t.Error("Begin should cancel the previous token")
	}
	clk.Advance(time.Second)
	if len(ran) != 1 || ran[0] != "second" {
		t.Errorf("ran = %v, want [second]", ran)
	}
}

func TestToken_CancelCountsUnfired(t *testing.T) {
	clk := clock.NewFake(epoch)
	s := NewScheduler(clk, uiloop.Inline{})
	tok := s.Begin()
	for _, d := range []time.Duration{10, 20, 30} {
		s.After(tok, d*time.Millisecond, func() {})
	}
	clk.Advance(15 * time.Millisecond)

	if n := tok.Cancel(); n != 2 {
		t.Errorf("Cancel() = %d, want 2", n)
	}
	if n := tok.Cancel(); n != 0 {
		t.Errorf("second Cancel() = %d, want 0", n)
	}
}

func TestScheduler_AfterOnCancelledTokenIsNoop(t *testing.T) {
	clk := clock.NewFake(epoch)
	s := NewScheduler(clk, uiloop.Inline{})
	tok := s.Begin()
	s.Cancel()
	s.After(tok, time.Millisecond, func() { t.Error("ran on cancelled token") })
	if clk.Pending() != 0 {
		t.Errorf("Pending() = %d", clk.Pending())
	}
	clk.Advance(time.Second)
}
