// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package mapsdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/eventmap/internal/logging"
	"github.com/tomtom215/eventmap/internal/metrics"
)

// DefaultMaxBundleBytes caps the SDK bundle download.
const DefaultMaxBundleBytes = 8 << 20

// HTTP source errors.
var (
	ErrEmptyBundle    = errors.New("sdk bundle is empty")
	ErrBundleTooLarge = errors.New("sdk bundle exceeds size limit")
)

// HTTPSourceConfig configures an HTTPSource.
type HTTPSourceConfig struct {
	// URL of the vendor SDK bundle.
	URL string
	// APIKey is appended as the apikey query parameter when set.
	APIKey string
	// Lang is appended as the lang query parameter when set (e.g. ru_RU).
	Lang string
	// MaxBytes caps the download. Default: DefaultMaxBundleBytes.
	MaxBytes int64
	// Client performs the request. Default: a client with a 10s timeout.
	Client *http.Client
}

// HTTPSource fetches the vendor SDK bundle, caches it for display clients
// and reports the given Runtime as ready.
//
// Fetches run through a circuit breaker so that repeated retries against a
// dead vendor endpoint fail fast.
type HTTPSource struct {
	cfg     HTTPSourceConfig
	runtime Runtime
	cb      *gobreaker.CircuitBreaker[[]byte]
	name    string

	mu        sync.RWMutex
	bundle    []byte
	fetchedAt time.Time
}

// NewHTTPSource creates a source that hands out rt once the bundle is
// fetched.
func NewHTTPSource(cfg HTTPSourceConfig, rt Runtime) *HTTPSource {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBundleBytes
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	name := "mapsdk-bundle"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		// Opens after 3 consecutive failed fetches.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &HTTPSource{cfg: cfg, runtime: rt, cb: cb, name: name}
}

// Load fetches the bundle in the background.
func (s *HTTPSource) Load(ctx context.Context, cb Callbacks) {
	go func() {
		body, err := s.cb.Execute(func() ([]byte, error) {
			return s.fetch(ctx)
		})
		if err != nil {
			result := "failure"
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				result = "rejected"
			}
			metrics.CircuitBreakerRequests.WithLabelValues(s.name, result).Inc()
			cb.Fail(err)
			return
		}
		metrics.CircuitBreakerRequests.WithLabelValues(s.name, "success").Inc()

		s.mu.Lock()
		s.bundle = body
		s.fetchedAt = time.Now().UTC()
		s.mu.Unlock()
		metrics.SDKBundleBytes.Set(float64(len(body)))

		cb.Ready(s.runtime)
	}()
}

// Bundle returns the cached SDK bundle. It reports false until a fetch has
// succeeded.
func (s *HTTPSource) Bundle() ([]byte, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.bundle == nil {
		return nil, time.Time{}, false
	}
	return s.bundle, s.fetchedAt, true
}

// RequestURL returns the bundle URL with the api key and language applied.
func (s *HTTPSource) RequestURL() (string, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse sdk url: %w", err)
	}
	q := u.Query()
	if s.cfg.APIKey != "" {
		q.Set("apikey", s.cfg.APIKey)
	}
	if s.cfg.Lang != "" {
		q.Set("lang", s.cfg.Lang)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *HTTPSource) fetch(ctx context.Context) ([]byte, error) {
	target, err := s.RequestURL()
	if err != nil {
		return nil, err
	}
	logging.Debug().Str("url", logging.RedactURL(target)).Msg("fetching map sdk bundle")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build sdk request: %w", err)
	}
	resp, err := s.cfg.Client.Do(req)
	if err != nil {
		// url.Error carries the full URL, api key included.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = logging.RedactURL(uerr.URL)
		}
		return nil, fmt.Errorf("fetch sdk bundle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch sdk bundle: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read sdk bundle: %w", err)
	}
	if int64(len(body)) > s.cfg.MaxBytes {
		return nil, ErrBundleTooLarge
	}
	if len(body) == 0 {
		return nil, ErrEmptyBundle
	}
	return body, nil
}

// breakerStateValue converts circuit breaker state to a gauge value.
func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// ReadySource reports rt as ready without fetching anything. It serves
// deployments where display clients load the SDK themselves.
func ReadySource(rt Runtime) Source {
	return SourceFunc(func(_ context.Context, cb Callbacks) {
		cb.Ready(rt)
	})
}
