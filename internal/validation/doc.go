// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the validator library to provide a thread-safe singleton
// validator instance with custom validators and user-friendly error messages.
// It is used for catalog records (invalid records are skipped, not fatal) and
// for API request parameters.
//
// # Overview
//
// The package provides:
//   - Thread-safe singleton validator (initialized once, cached struct info)
//   - Custom tags: locale (BCP 47 language tag) and domid (container id)
//   - Error translation to human-readable messages
//   - APIError conversion matching the API error envelope
//
// # Quick Start
//
//	type CardsRequest struct {
//	    Locale string `validate:"omitempty,locale"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
//
// # Thread Safety
//
// GetValidator and ValidateStruct are safe for concurrent use. The validator
// caches struct metadata after the first validation of each type.
package validation
