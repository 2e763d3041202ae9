// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

// Package markers computes the marker set for a list of events and inserts
// it into a map widget with a staggered entrance.
//
// Every Rebuild replaces the previous set entirely: pending insertions of the
// previous call are cancelled, the widget collection is cleared, and the new
// markers are scheduled. Marker i (counting only events with a usable
// coordinate) appears after
//
//	BaseDelay + (i mod Cycle) * StepDelay
//
// so the stagger length is bounded regardless of list size. Markers that
// share a delay are inserted together in input order.
package markers

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/eventmap/internal/coords"
	"github.com/tomtom215/eventmap/internal/eventcard"
	"github.com/tomtom215/eventmap/internal/logging"
	"github.com/tomtom215/eventmap/internal/mapsdk"
	"github.com/tomtom215/eventmap/internal/metrics"
	"github.com/tomtom215/eventmap/internal/models"
)

// Options tunes the stagger and entrance animation.
type Options struct {
	BaseDelay        time.Duration
	StepDelay        time.Duration
	Cycle            int
	EntranceDuration time.Duration
	// EntranceOffset is how far above its resting position, in pixels, a
	// marker starts its entrance.
	EntranceOffset float64
}

// DefaultOptions returns the stock stagger: 60ms base, 60ms step, cycle of
// 10, 400ms entrance from 24px above.
func DefaultOptions() Options {
	return Options{
		BaseDelay:        60 * time.Millisecond,
		StepDelay:        60 * time.Millisecond,
		Cycle:            10,
		EntranceDuration: 400 * time.Millisecond,
		EntranceOffset:   24,
	}
}

// Collection is the part of a map widget the controller mutates.
type Collection interface {
	AddMarker(spec mapsdk.MarkerSpec) error
	ClearMarkers() int
	AnimateMarker(id string, from, to mapsdk.MarkerStyle, d time.Duration) error
}

// MapMarker is one computed marker.
type MapMarker struct {
	ID             string             `json:"id"`
	Coordinate     coords.LatLng      `json:"coordinate"`
	Event          models.EventRecord `json:"-"`
	AnimationDelay time.Duration      `json:"animation_delay"`
	Inserted       bool               `json:"inserted"`
	BalloonOpen    bool               `json:"balloon_open"`
}

// Controller owns the marker set. It is not safe for concurrent use and
// runs on the UI loop.
type Controller struct {
	opts       Options
	sched      *Scheduler
	cards      *eventcard.Formatter
	logger     zerolog.Logger
	onComplete func(inserted int)

	markers []MapMarker
	index   map[string]int
	token   *Token
	pending int
}

// NewController creates a controller. Zero or negative options fall back to
// DefaultOptions field by field, so Options{} behaves like DefaultOptions().
func NewController(sched *Scheduler, cards *eventcard.Formatter, opts Options) *Controller {
	def := DefaultOptions()
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = def.BaseDelay
	}
	if opts.StepDelay <= 0 {
		opts.StepDelay = def.StepDelay
	}
	if opts.Cycle <= 0 {
		opts.Cycle = def.Cycle
	}
	if opts.EntranceDuration <= 0 {
		opts.EntranceDuration = def.EntranceDuration
	}
	if opts.EntranceOffset <= 0 {
		opts.EntranceOffset = def.EntranceOffset
	}
	if cards == nil {
		cards = eventcard.NewFormatter(eventcard.Options{})
	}
	return &Controller{
		opts:   opts,
		sched:  sched,
		cards:  cards,
		logger: logging.WithComponent("markers"),
		index:  make(map[string]int),
	}
}

// OnComplete registers fn to run after the last marker of a rebuild is
// inserted, or immediately for a rebuild with no markers.
func (c *Controller) OnComplete(fn func(inserted int)) {
	c.onComplete = fn
}

// DelayFor returns the entrance delay of the i-th retained marker.
func (c *Controller) DelayFor(i int) time.Duration {
	return c.opts.BaseDelay + time.Duration(i%c.opts.Cycle)*c.opts.StepDelay
}

// HiddenStyle is the entrance starting style: transparent and above the
// resting position.
func (c *Controller) HiddenStyle() mapsdk.MarkerStyle {
	return mapsdk.MarkerStyle{Opacity: 0, OffsetY: -c.opts.EntranceOffset}
}

// Rebuild replaces the marker set with one marker per event that has a
// valid coordinate and returns the number of markers scheduled.
func (c *Controller) Rebuild(events []models.EventRecord, col Collection) int {
	c.Cancel()

	computed := make([]MapMarker, 0, len(events))
	index := make(map[string]int, len(events))
	for i := range events {
		e := &events[i]
		pos, ok := c.coordinateOf(e)
		if !ok {
			continue
		}
		if _, dup := index[e.ID]; dup {
			c.logger.Debug().Str("event", e.ID).Msg("duplicate event id, keeping first marker")
			metrics.RecordCoordinateRejection("duplicate")
			continue
		}
		n := len(computed)
		index[e.ID] = n
		computed = append(computed, MapMarker{
			ID:             e.ID,
			Coordinate:     pos,
			Event:          *e,
			AnimationDelay: c.DelayFor(n),
		})
	}

	cleared := col.ClearMarkers()
	c.markers = computed
	c.index = index
	c.pending = len(computed)
	metrics.RecordMarkerRebuild(len(computed))
	c.logger.Debug().
		Int("events", len(events)).
		Int("markers", len(computed)).
		Int("cleared", cleared).
		Msg("rebuilding markers")

	if len(computed) == 0 {
		c.token = nil
		c.complete()
		return 0
	}

	tok := c.sched.Begin()
	c.token = tok
	for _, b := range c.buckets() {
		idxs := b.indexes
		c.sched.After(tok, b.delay, func() {
			c.insert(tok, idxs, col)
		})
	}
	return len(computed)
}

// Cancel stops every pending insertion of the current rebuild and returns
// how many markers will now never be inserted.
func (c *Controller) Cancel() int {
	c.sched.Cancel()
	n := c.pending
	c.pending = 0
	c.token = nil
	metrics.RecordInsertionsCancelled(n)
	if n > 0 {
		c.logger.Debug().Int("cancelled", n).Msg("cancelled pending marker insertions")
	}
	return n
}

// Reset cancels pending insertions and forgets the marker set. Used when the
// widget itself is gone.
func (c *Controller) Reset() {
	c.Cancel()
	c.markers = nil
	c.index = make(map[string]int)
}

// Pending returns the number of scheduled markers not yet inserted.
func (c *Controller) Pending() int {
	return c.pending
}

// Len returns the number of markers in the current set.
func (c *Controller) Len() int {
	return len(c.markers)
}

// IsInserted reports whether marker id is visible.
func (c *Controller) IsInserted(id string) bool {
	i, ok := c.index[id]
	return ok && c.markers[i].Inserted
}

// Has reports whether id belongs to the current marker set.
func (c *Controller) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Snapshot returns a copy of the marker set. openID marks the marker whose
// balloon is open.
func (c *Controller) Snapshot(openID string) []MapMarker {
	out := make([]MapMarker, len(c.markers))
	copy(out, c.markers)
	for i := range out {
		out[i].BalloonOpen = openID != "" && out[i].ID == openID
	}
	return out
}

type bucket struct {
	delay   time.Duration
	indexes []int
}

// buckets groups marker indexes by delay, ordered by delay then index.
func (c *Controller) buckets() []bucket {
	byDelay := make(map[time.Duration][]int)
	for i, m := range c.markers {
		byDelay[m.AnimationDelay] = append(byDelay[m.AnimationDelay], i)
	}
	out := make([]bucket, 0, len(byDelay))
	for d, idxs := range byDelay {
		out = append(out, bucket{delay: d, indexes: idxs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].delay < out[j].delay })
	return out
}

func (c *Controller) insert(tok *Token, idxs []int, col Collection) {
	if tok != c.token {
		return
	}
	hidden := c.HiddenStyle()
	inserted := 0
	for _, i := range idxs {
		m := &c.markers[i]
		if m.Inserted {
			continue
		}
		c.pending--
		spec := mapsdk.MarkerSpec{
			ID:       m.ID,
			Position: m.Coordinate,
			Style:    hidden,
			Balloon:  c.cards.Card(&m.Event),
		}
		if err := col.AddMarker(spec); err != nil {
			c.logger.Warn().Err(err).Str("marker", m.ID).Msg("marker insert failed")
			continue
		}
		if err := col.AnimateMarker(m.ID, hidden, mapsdk.RestingStyle, c.opts.EntranceDuration); err != nil {
			c.logger.Warn().Err(err).Str("marker", m.ID).Msg("marker entrance failed")
		}
		m.Inserted = true
		inserted++
	}
	metrics.RecordMarkersInserted(inserted)

	if c.pending == 0 {
		c.token = nil
		c.complete()
	}
}

func (c *Controller) complete() {
	if c.onComplete == nil {
		return
	}
	n := 0
	for _, m := range c.markers {
		if m.Inserted {
			n++
		}
	}
	c.onComplete(n)
}

func (c *Controller) coordinateOf(e *models.EventRecord) (coords.LatLng, bool) {
	if e.RawCoordinate == nil {
		metrics.RecordCoordinateRejection(string(coords.ReasonEmpty))
		return coords.LatLng{}, false
	}
	pos, err := coords.Parse(*e.RawCoordinate)
	if err != nil {
		reason := coords.ReasonOf(err)
		metrics.RecordCoordinateRejection(string(reason))
		if reason != coords.ReasonEmpty {
			c.logger.Debug().Err(err).Str("event", e.ID).Msg("event coordinate rejected")
		}
		return coords.LatLng{}, false
	}
	return pos, true
}
