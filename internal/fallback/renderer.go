// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

// Package fallback renders events as a plain list for when the map cannot be
// shown. It depends only on the event cards, never on the map packages, and
// works for events without coordinates.
package fallback

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/tomtom215/eventmap/internal/eventcard"
	"github.com/tomtom215/eventmap/internal/metrics"
	"github.com/tomtom215/eventmap/internal/models"
)

// DefaultRetryAction is where the "try again" form posts.
const DefaultRetryAction = "/api/v1/map/retry"

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// Options configures a Renderer.
type Options struct {
	// RetryAction is the form target of the retry button.
	RetryAction string
}

// RenderOptions controls one render.
type RenderOptions struct {
	// ShowRetry adds the "try again" form and the map failure notice.
	ShowRetry bool
}

// Renderer renders event cards as an HTML list.
type Renderer struct {
	cards       *eventcard.Formatter
	retryAction string
}

type listData struct {
	Locale      string
	Items       []eventcard.Card
	Notice      string
	ShowRetry   bool
	RetryAction string
	RetryLabel  string
	EmptyNotice string
}

// New creates a renderer. A nil formatter uses the default locale.
func New(cards *eventcard.Formatter, opts Options) *Renderer {
	if cards == nil {
		cards = eventcard.NewFormatter(eventcard.Options{})
	}
	if opts.RetryAction == "" {
		opts.RetryAction = DefaultRetryAction
	}
	return &Renderer{cards: cards, retryAction: opts.RetryAction}
}

// Items returns one card per event, in input order.
func (r *Renderer) Items(events []models.EventRecord) []eventcard.Card {
	return r.cards.Cards(events)
}

// Render writes the list for events to w.
func (r *Renderer) Render(w io.Writer, events []models.EventRecord, opts RenderOptions) error {
	data := listData{
		Locale:      r.cards.Locale(),
		Items:       r.Items(events),
		ShowRetry:   opts.ShowRetry,
		RetryAction: r.retryAction,
		RetryLabel:  r.cards.RetryLabel(),
		EmptyNotice: r.cards.NoEventsNotice(),
	}
	if opts.ShowRetry {
		data.Notice = r.cards.MapFailedNotice()
	}

	// Render into a buffer so a template error never leaves a partial page.
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "list", data); err != nil {
		return fmt.Errorf("render fallback list: %w", err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("write fallback list: %w", err)
	}
	metrics.RecordFallbackRender()
	return nil
}
