// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package catalog

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/providers/file"
	"github.com/rs/zerolog"

	"github.com/tomtom215/eventmap/internal/logging"
	"github.com/tomtom215/eventmap/internal/metrics"
)

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// Path of the catalog JSON file.
	Path string
	// Watch reloads the file when it changes.
	Watch bool
}

// Watcher publishes the contents of a catalog file to a Feed.
type Watcher struct {
	cfg      WatcherConfig
	provider *file.File
	feed     *Feed
	logger   zerolog.Logger
}

// NewWatcher creates a watcher for cfg.Path.
func NewWatcher(cfg WatcherConfig, feed *Feed) *Watcher {
	return &Watcher{
		cfg:      cfg,
		provider: file.Provider(cfg.Path),
		feed:     feed,
		logger:   logging.WithComponent("catalog.watcher").With().Str("path", cfg.Path).Logger(),
	}
}

// Load reads and publishes the file once.
func (w *Watcher) Load() (Batch, error) {
	data, err := w.provider.ReadBytes()
	if err != nil {
		metrics.RecordCatalogUpdate(false, 0, 0)
		return Batch{}, fmt.Errorf("read catalog %s: %w", w.cfg.Path, err)
	}
	b, err := Decode(data)
	if err != nil {
		metrics.RecordCatalogUpdate(false, 0, 0)
		return Batch{}, fmt.Errorf("decode catalog %s: %w", w.cfg.Path, err)
	}
	if err := w.feed.Publish(b, "file"); err != nil {
		return Batch{}, err
	}
	w.logger.Info().Int("events", len(b.Events)).Int("skipped", b.Skipped).Msg("catalog loaded")
	return b, nil
}

// Serve implements suture.Service. A failed initial load is logged and the
// previous catalog stays in effect; the watcher keeps running so a fixed
// file is picked up.
func (w *Watcher) Serve(ctx context.Context) error {
	if _, err := w.Load(); err != nil {
		w.logger.Error().Err(err).Msg("catalog load failed")
	}
	if !w.cfg.Watch {
		<-ctx.Done()
		return ctx.Err()
	}

	if err := w.provider.Watch(func(_ interface{}, err error) {
		if err != nil {
			w.logger.Warn().Err(err).Msg("catalog watch error")
			return
		}
		if _, err := w.Load(); err != nil {
			w.logger.Error().Err(err).Msg("catalog reload failed")
		}
	}); err != nil {
		return fmt.Errorf("watch catalog %s: %w", w.cfg.Path, err)
	}
	defer func() {
		if err := w.provider.Unwatch(); err != nil {
			w.logger.Debug().Err(err).Msg("catalog unwatch")
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (w *Watcher) String() string {
	return "catalog-watcher"
}
