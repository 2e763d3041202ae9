// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

// Package logging provides the zerolog-based global logger used across
// Eventmap.
//
// Call Init once from main with values taken from the logging section of
// the configuration. Before that, a JSON logger at info level writes to
// stderr.
//
//	logging.Init(logging.Config{Level: "debug", Format: "console"})
//	logging.Info().Str("container", id).Msg("map mounted")
//
// Components derive child loggers with WithComponent. HTTP handlers use Ctx
// so request and map session ids ride along on every line.
//
// Libraries that require a *slog.Logger, such as the supervisor event hook,
// are bridged with NewSlogLogger.
//
// SDK URLs carry an API key; log them through RedactURL.
//
// Always terminate log chains with .Msg() or .Send(); an unterminated
// event is never written.
package logging
