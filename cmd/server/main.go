// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/eventmap/internal/api"
	"github.com/tomtom215/eventmap/internal/catalog"
	"github.com/tomtom215/eventmap/internal/config"
	"github.com/tomtom215/eventmap/internal/coords"
	"github.com/tomtom215/eventmap/internal/eventcard"
	"github.com/tomtom215/eventmap/internal/fallback"
	"github.com/tomtom215/eventmap/internal/logging"
	"github.com/tomtom215/eventmap/internal/mapsdk"
	"github.com/tomtom215/eventmap/internal/mapview"
	"github.com/tomtom215/eventmap/internal/markers"
	"github.com/tomtom215/eventmap/internal/supervisor"
	"github.com/tomtom215/eventmap/internal/supervisor/services"
	"github.com/tomtom215/eventmap/internal/uiloop"
	ws "github.com/tomtom215/eventmap/internal/websocket"
)

// uiQueueSize bounds the tasks waiting for the ui loop.
const uiQueueSize = 512

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", api.Version).
		Str("addr", cfg.Server.Addr()).
		Str("sdk_url", logging.RedactURL(cfg.SDK.URL)).
		Str("catalog", cfg.Catalog.Path).
		Str("locale", cfg.Fallback.Locale).
		Msg("Starting Eventmap")

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Strs("origins", cfg.Security.CORSOrigins).Msg("Wildcard CORS origin configured")
	}

	cards := eventcard.NewFormatter(eventcard.Options{
		Locale:           cfg.Fallback.Locale,
		PlaceholderImage: cfg.Fallback.PlaceholderImage,
		Location:         cfg.Location(),
	})
	list := fallback.New(cards, fallback.Options{RetryAction: cfg.Fallback.RetryAction})

	loop := uiloop.New("ui-loop", uiQueueSize)

	// hub needs the display, which needs the runtime. It is assigned before
	// the ui loop starts, and only ui tasks publish.
	var hub *ws.Hub
	runtime := mapsdk.NewSceneRuntime(mapsdk.PublisherFunc(func(op mapsdk.Op) {
		hub.Publish(op)
	}))

	source := mapsdk.NewHTTPSource(mapsdk.HTTPSourceConfig{
		URL:      cfg.SDK.URL,
		APIKey:   cfg.SDK.APIKey,
		Lang:     cfg.SDK.Lang,
		MaxBytes: cfg.SDK.MaxBytes,
		Client:   &http.Client{Timeout: cfg.SDK.FetchTimeout},
	}, runtime)
	loader := mapsdk.NewLoader(source, mapsdk.LoaderOptions{Timeout: cfg.SDK.LoadTimeout})

	manager := mapview.NewManager(loader, mapview.Config{
		Owner:   cfg.Map.ContainerID,
		Center:  coords.LatLng{Lat: cfg.Map.CenterLat, Lng: cfg.Map.CenterLng},
		Zoom:    cfg.Map.Zoom,
		MaxZoom: cfg.Map.MaxZoom,
		Markers: markers.Options{
			BaseDelay:        cfg.Markers.BaseDelay,
			StepDelay:        cfg.Markers.StepDelay,
			Cycle:            cfg.Markers.Cycle,
			EntranceDuration: cfg.Markers.EntranceDuration,
			EntranceOffset:   cfg.Markers.EntranceOffset,
		},
		Cards:    cards,
		Dispatch: loop,
	})

	var view *mapview.View
	view = mapview.NewView(manager, func(msg string) {
		logging.Warn().Str("error", msg).Msg("Map unavailable, showing event list")
		hub.BroadcastJSON(ws.MessageTypeView, view.Snapshot())
	})

	container := mapsdk.NewElementContainer(cfg.Map.ContainerID, cfg.Map.Width, cfg.Map.Height)
	display := api.NewDisplay(runtime, container, loop, view)
	hub = ws.NewHub(ws.HubOptions{Handler: display, Snapshot: display.Snapshot})

	loop.Post(func() {
		if err := view.Mount(container); err != nil {
			logging.Error().Err(err).Str("container", container.ID()).Msg("Failed to mount map")
		}
	})

	feed := catalog.NewFeed()
	defer func() {
		if err := feed.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing catalog feed")
		}
	}()
	consumer := catalog.NewConsumer(feed, func(b catalog.Batch) {
		loop.Post(func() { view.SetEvents(b.Events) })
	})

	handler := api.NewHandler(api.HandlerOptions{
		Config:   cfg,
		Loop:     loop,
		View:     view,
		Display:  display,
		Cards:    cards,
		Fallback: list,
		Feed:     feed,
		Bundle:   source,
		Hub:      hub,
	})
	router := api.NewRouter(handler, cfg)
	server := services.NewHTTPServer(cfg.Server, router.SetupChi())

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if cfg.Catalog.Path != "" {
		tree.AddDataService(catalog.NewWatcher(catalog.WatcherConfig{
			Path:  cfg.Catalog.Path,
			Watch: cfg.Catalog.Watch,
		}, feed))
		logging.Info().Str("path", cfg.Catalog.Path).Bool("watch", cfg.Catalog.Watch).Msg("Catalog watcher added to supervisor tree")
	} else {
		logging.Info().Msg("No catalog file configured, events arrive through the API only")
	}
	tree.AddViewService(loop)
	tree.AddViewService(consumer)
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
		os.Exit(1)
	}

	logging.Info().Msg("Eventmap stopped")
}
