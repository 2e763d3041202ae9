// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

/*
Package models defines the event records the map subsystem consumes.

Records are produced by the booking platform and arrive through the catalog
feed. They are read-only for the duration of one render cycle: controllers
copy the slice they are given and never mutate a record.

Key types:

  - EventRecord: one scheduled event with venue, time window, optional cover
    image, optional ticket prices and an optional free-form coordinate.
  - TicketPrice: one ticket tier; the price summary is derived from these.

Coordinates are kept as the raw string the platform stored. They are parsed
by the coords package, never here.
*/
package models
