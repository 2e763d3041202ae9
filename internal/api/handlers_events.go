// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/tomtom215/eventmap/internal/catalog"
	"github.com/tomtom215/eventmap/internal/logging"
	"github.com/tomtom215/eventmap/internal/models"
)

// UploadResult is the response to an accepted catalog upload.
type UploadResult struct {
	Accepted int                 `json:"accepted"`
	Skipped  int                 `json:"skipped"`
	Rejected []catalog.Rejection `json:"rejected,omitempty"`
}

func (h *Handler) catalogVersion() uint64 {
	if h.feed == nil {
		return 0
	}
	_, version, _ := h.feed.Latest()
	return version
}

func (h *Handler) currentEvents(w http.ResponseWriter, r *http.Request) ([]models.EventRecord, bool) {
	events, err := onLoop(r.Context(), h, h.view.Events)
	if err != nil {
		NewResponseWriter(w, r).ServiceUnavailable("map view unavailable")
		return nil, false
	}
	if events == nil {
		events = []models.EventRecord{}
	}
	return events, true
}

// Events lists the events the view currently shows.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	events, ok := h.currentEvents(w, r)
	if !ok {
		return
	}
	NewResponseWriter(w, r).List(events, len(events), h.catalogVersion())
}

// EventCards lists the current events as localized cards, the same content
// the balloons and the fallback list show.
func (h *Handler) EventCards(w http.ResponseWriter, r *http.Request) {
	events, ok := h.currentEvents(w, r)
	if !ok {
		return
	}
	cards := h.cards.Cards(events)
	NewResponseWriter(w, r).List(cards, len(cards), h.catalogVersion())
}

// UploadEvents replaces the catalog with the posted document. Invalid
// records are skipped and reported. A document whose every record is invalid
// is rejected and leaves the catalog unchanged.
func (h *Handler) UploadEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.feed == nil {
		rw.ServiceUnavailable(ErrNoCatalogFeed.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rw.Error(http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "catalog document too large")
			return
		}
		rw.BadRequest("failed to read request body")
		return
	}

	batch, err := catalog.Decode(body)
	if err != nil {
		rw.ValidationError("invalid catalog document", err.Error())
		return
	}
	if len(batch.Events) == 0 && len(batch.Rejected) > 0 {
		rw.ValidationError("no valid records in catalog document", batch.Rejected)
		return
	}

	if err := h.feed.Publish(batch, "api"); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("catalog publish failed")
		if errors.Is(err, catalog.ErrFeedClosed) {
			rw.ServiceUnavailable("catalog feed closed")
			return
		}
		rw.InternalError("failed to publish catalog")
		return
	}

	logging.Ctx(r.Context()).Info().
		Int("accepted", len(batch.Events)).
		Int("skipped", batch.Skipped).
		Msg("catalog uploaded")
	rw.Accepted(UploadResult{Accepted: len(batch.Events), Skipped: batch.Skipped, Rejected: batch.Rejected})
}
