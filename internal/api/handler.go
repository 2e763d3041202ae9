// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/eventmap/internal/catalog"
	"github.com/tomtom215/eventmap/internal/config"
	"github.com/tomtom215/eventmap/internal/eventcard"
	"github.com/tomtom215/eventmap/internal/fallback"
	"github.com/tomtom215/eventmap/internal/logging"
	"github.com/tomtom215/eventmap/internal/mapview"
	"github.com/tomtom215/eventmap/internal/uiloop"
	ws "github.com/tomtom215/eventmap/internal/websocket"
)

// DefaultLoopTimeout bounds how long a request waits for the view loop.
const DefaultLoopTimeout = 2 * time.Second

// maxUploadBytes caps catalog uploads.
const maxUploadBytes = 4 << 20

// BundleProvider serves the cached vendor SDK bundle.
type BundleProvider interface {
	Bundle() ([]byte, time.Time, bool)
}

// HandlerOptions wires a Handler. Loop, View, Display and Fallback are
// required; the rest may be nil and disable the endpoints that need them.
type HandlerOptions struct {
	Config   *config.Config
	Loop     uiloop.Runner
	View     *mapview.View
	Display  *Display
	Cards    *eventcard.Formatter
	Fallback *fallback.Renderer
	Feed     *catalog.Feed
	Bundle   BundleProvider
	Hub      *ws.Hub

	// LoopTimeout defaults to DefaultLoopTimeout.
	LoopTimeout time.Duration
}

// Handler serves the event map page and its JSON API.
type Handler struct {
	config   *config.Config
	loop     uiloop.Runner
	view     *mapview.View
	display  *Display
	cards    *eventcard.Formatter
	fallback *fallback.Renderer
	feed     *catalog.Feed
	bundle   BundleProvider
	wsHub    *ws.Hub

	retryLimiter *rate.Limiter
	loopTimeout  time.Duration
	startTime    time.Time
}

// NewHandler creates a handler from opts.
func NewHandler(opts HandlerOptions) *Handler {
	if opts.LoopTimeout <= 0 {
		opts.LoopTimeout = DefaultLoopTimeout
	}
	if opts.Cards == nil {
		opts.Cards = eventcard.NewFormatter(eventcard.Options{})
	}
	if opts.Fallback == nil {
		opts.Fallback = fallback.New(opts.Cards, fallback.Options{})
	}

	perMinute, burst := 6, 2
	if opts.Config != nil {
		if opts.Config.Security.RetryPerMinute > 0 {
			perMinute = opts.Config.Security.RetryPerMinute
		}
		if opts.Config.Security.RetryBurst > 0 {
			burst = opts.Config.Security.RetryBurst
		}
	}

	return &Handler{
		config:       opts.Config,
		loop:         opts.Loop,
		view:         opts.View,
		display:      opts.Display,
		cards:        opts.Cards,
		fallback:     opts.Fallback,
		feed:         opts.Feed,
		bundle:       opts.Bundle,
		wsHub:        opts.Hub,
		retryLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst),
		loopTimeout:  opts.LoopTimeout,
		startTime:    time.Now(),
	}
}

// onLoop runs fn on the view loop, bounded by the request context and the
// loop timeout, and returns its result.
func onLoop[T any](ctx context.Context, h *Handler, fn func() T) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, h.loopTimeout)
	defer cancel()
	v, err := doValue(ctx, h.loop, fn)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("view loop did not answer")
		return v, ErrLoopUnavailable
	}
	return v, nil
}

// doValue runs fn on r and hands its result back over a buffered channel.
// A task that runs after ctx expired writes only to that channel.
func doValue[T any](ctx context.Context, r uiloop.Runner, fn func() T) (T, error) {
	out := make(chan T, 1)
	if err := r.Do(ctx, func() { out <- fn() }); err != nil {
		var zero T
		return zero, err
	}
	return <-out, nil
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts the page's own origin and the configured CORS
// origins. Browsers always send Origin, so a missing header is rejected.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}

	if h.config == nil {
		return true
	}
	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// sanitizeLogValue strips control characters and bounds the length of
// client-supplied values before they reach the logs.
func sanitizeLogValue(s string) string {
	const maxLen = 200
	var b strings.Builder
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
		if b.Len() >= maxLen {
			break
		}
	}
	return b.String()
}

// wantsHTML reports whether the request came from a plain HTML form or a
// browser navigation rather than a script.
func wantsHTML(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data") {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}
