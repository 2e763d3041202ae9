// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/eventmap/internal/logging"
	"github.com/tomtom215/eventmap/internal/metrics"
)

// Topic carries catalog batches.
const Topic = "catalog.events"

// Message metadata keys.
const (
	metaSource  = "source"
	metaVersion = "version"
)

// ErrFeedClosed is returned by Publish after Close.
var ErrFeedClosed = errors.New("catalog feed is closed")

// Feed distributes catalog batches to consumers. It remembers the latest
// batch so a consumer that subscribes late starts from the current catalog.
type Feed struct {
	pubsub *gochannel.GoChannel
	logger zerolog.Logger

	mu      sync.Mutex
	latest  *Batch
	version uint64
	closed  bool
}

// NewFeed creates a feed backed by an in-process gochannel pub/sub.
func NewFeed() *Feed {
	wl := watermill.NewSlogLogger(logging.NewSlogLogger().With("component", "catalog.feed"))
	return &Feed{
		pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 4}, wl),
		logger: logging.WithComponent("catalog.feed"),
	}
}

// Publish sends b to every consumer. source names the origin for logs.
func (f *Feed) Publish(b Batch, source string) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode catalog batch: %w", err)
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFeedClosed
	}
	f.version++
	version := f.version
	snapshot := b
	f.latest = &snapshot
	f.mu.Unlock()

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metaSource, source)
	msg.Metadata.Set(metaVersion, strconv.FormatUint(version, 10))

	if err := f.pubsub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("publish catalog batch: %w", err)
	}
	f.logger.Debug().
		Str("source", source).
		Uint64("version", version).
		Int("events", len(b.Events)).
		Int("skipped", b.Skipped).
		Msg("catalog batch published")
	return nil
}

// Latest returns the most recent batch and its version.
func (f *Feed) Latest() (Batch, uint64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latest == nil {
		return Batch{}, 0, false
	}
	return *f.latest, f.version, true
}

// Consume delivers batches to apply until ctx is done. The latest batch is
// delivered first; older versions are never delivered after newer ones.
func (f *Feed) Consume(ctx context.Context, apply func(Batch)) error {
	msgs, err := f.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", Topic, err)
	}

	var applied uint64
	if b, version, ok := f.Latest(); ok {
		applied = version
		f.deliver(apply, b)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			version, _ := strconv.ParseUint(msg.Metadata.Get(metaVersion), 10, 64)
			if version != 0 && version <= applied {
				msg.Ack()
				continue
			}
			var b Batch
			if err := json.Unmarshal(msg.Payload, &b); err != nil {
				// A payload that cannot be decoded will never succeed; ack it.
				f.logger.Error().Err(err).Str("message", msg.UUID).Msg("dropping undecodable catalog message")
				metrics.RecordCatalogUpdate(false, 0, 0)
				msg.Ack()
				continue
			}
			applied = version
			f.deliver(apply, b)
			msg.Ack()
		}
	}
}

func (f *Feed) deliver(apply func(Batch), b Batch) {
	metrics.RecordCatalogUpdate(true, len(b.Events), b.Skipped)
	apply(b)
}

// Close stops the feed. Consumers see their channel closed.
func (f *Feed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()
	return f.pubsub.Close()
}

// Consumer runs Feed.Consume as a supervised service.
type Consumer struct {
	feed  *Feed
	apply func(Batch)
	name  string
}

// NewConsumer creates a consumer service.
func NewConsumer(feed *Feed, apply func(Batch)) *Consumer {
	return &Consumer{feed: feed, apply: apply, name: "catalog-consumer"}
}

// Serve implements suture.Service.
func (c *Consumer) Serve(ctx context.Context) error {
	return c.feed.Consume(ctx, c.apply)
}

// String implements fmt.Stringer for logging.
func (c *Consumer) String() string {
	return c.name
}
