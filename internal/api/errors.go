// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package api

import "errors"

// Common API errors
var (
	// ErrLoopUnavailable indicates the view loop stopped or did not answer in time
	ErrLoopUnavailable = errors.New("view loop unavailable")

	// ErrNoCatalogFeed indicates uploads are disabled because no feed is configured
	ErrNoCatalogFeed = errors.New("catalog feed not configured")
)
