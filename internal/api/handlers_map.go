// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package api

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/tomtom215/eventmap/internal/fallback"
	"github.com/tomtom215/eventmap/internal/logging"
	"github.com/tomtom215/eventmap/internal/mapview"
	"github.com/tomtom215/eventmap/internal/metrics"
	"github.com/tomtom215/eventmap/internal/models"
)

// Paths referenced by the page.
const (
	BundlePath = "/sdk/bundle.js"
	WSPath     = "/api/v1/ws"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

type pageData struct {
	Locale      string
	Title       string
	Mode        mapview.Mode
	ContainerID string
	Width       int
	Height      int
	BundleURL   string
	WSPath      string
	Fallback    template.HTML
}

// Page serves the event map page. In fallback mode the page is the event
// list with a retry button; otherwise it holds the map container and the
// list is only shown to clients without scripts.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	type pageState struct {
		mode      mapview.Mode
		events    []models.EventRecord
		container string
	}
	st, err := onLoop(r.Context(), h, func() pageState {
		return pageState{
			mode:      h.view.Mode(),
			events:    h.view.Events(),
			container: h.view.Snapshot().Container,
		}
	})
	if err != nil {
		NewResponseWriter(w, r).ServiceUnavailable("map view unavailable")
		return
	}
	mode, events, container := st.mode, st.events, st.container

	var list bytes.Buffer
	if err := h.fallback.Render(&list, events, fallback.RenderOptions{ShowRetry: mode == mapview.ModeFallback}); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("fallback list render failed")
		NewResponseWriter(w, r).InternalError("render failed")
		return
	}

	data := pageData{
		Locale:    h.cards.Locale(),
		Title:     "Events",
		Mode:      mode,
		BundleURL: BundlePath,
		WSPath:    WSPath,
		// Rendered by html/template above.
		Fallback: template.HTML(list.String()), //nolint:gosec
	}
	data.ContainerID = container
	if h.config != nil {
		if data.ContainerID == "" {
			data.ContainerID = h.config.Map.ContainerID
		}
		data.Width = h.config.Map.Width
		data.Height = h.config.Map.Height
	}

	var page bytes.Buffer
	if err := pageTemplate.ExecuteTemplate(&page, "page", data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("page render failed")
		NewResponseWriter(w, r).InternalError("render failed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := page.WriteTo(w); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("page write failed")
	}
}

// MapState returns the current view snapshot.
func (h *Handler) MapState(w http.ResponseWriter, r *http.Request) {
	snap, err := onLoop(r.Context(), h, h.view.Snapshot)
	if err != nil {
		NewResponseWriter(w, r).ServiceUnavailable("map view unavailable")
		return
	}
	NewResponseWriter(w, r).Success(snap)
}

// RetryResult is the response to an accepted retry.
type RetryResult struct {
	Accepted bool         `json:"accepted"`
	Mode     mapview.Mode `json:"mode"`
}

// RetryMap leaves fallback mode and loads the map again. Retries are
// throttled globally so a crowd of clients cannot hammer the vendor.
func (h *Handler) RetryMap(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.retryLimiter.Allow() {
		metrics.RecordSDKRetry("throttled")
		rw.TooManyRequests("retry attempted too often")
		return
	}

	res, err := onLoop(r.Context(), h, func() RetryResult {
		return RetryResult{Accepted: h.view.Retry(), Mode: h.view.Mode()}
	})
	if err != nil {
		rw.ServiceUnavailable("map view unavailable")
		return
	}

	if !res.Accepted {
		metrics.RecordSDKRetry("rejected")
		if wantsHTML(r) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		rw.Conflict("map is not in fallback mode")
		return
	}

	logging.Ctx(r.Context()).Info().Msg("map retry accepted")
	if wantsHTML(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	rw.Accepted(res)
}

// SDKBundle serves the vendor SDK bundle fetched at startup.
func (h *Handler) SDKBundle(w http.ResponseWriter, r *http.Request) {
	if h.bundle == nil {
		NewResponseWriter(w, r).ServiceUnavailable("sdk bundle not configured")
		return
	}
	body, fetchedAt, ok := h.bundle.Bundle()
	if !ok {
		w.Header().Set("Retry-After", "5")
		NewResponseWriter(w, r).ServiceUnavailable("sdk bundle not loaded")
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeContent(w, r, "bundle.js", fetchedAt, bytes.NewReader(body))
}
