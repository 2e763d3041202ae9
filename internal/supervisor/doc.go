// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

/*
Package supervisor runs the long-lived parts of Eventmap under suture v4.

# Overview

Services are grouped into four layers so that a failure in one does not
take down the others:

	RootSupervisor ("eventmap")
	├── DataSupervisor ("data-layer")
	│   └── CatalogWatcher (if CATALOG_PATH is set)
	├── ViewSupervisor ("view-layer")
	│   ├── uiloop.Loop ("ui-loop")
	│   └── catalog.Consumer
	├── MessagingSupervisor ("messaging-layer")
	│   └── WebSocketHubService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

The ui loop owns every map controller. It is started once and only stops
when the root context is canceled, so a restart of the HTTP server or the
hub never loses markers, popups or the fallback state. The catalog
consumer lives next to the loop because everything it does is a post to
it.

# Usage

	tree, err := supervisor.NewSupervisorTree(nil, supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddViewService(loop)
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = tree.Serve(ctx)

# Failure Handling

Failures decay over FailureDecay seconds. Once more than FailureThreshold
failures accumulate, restarts wait FailureBackoff. Defaults match suture:
5 failures, 30 second decay, 15 second backoff, 10 second shutdown timeout.

A service that returns nil is considered done and is not restarted. The
hub wrapper therefore reports an unexpected return as an error.

# Debugging Shutdown

	report, _ := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    logging.Warn().Str("service", svc.Name).Msg("did not stop")
	}
*/
package supervisor
