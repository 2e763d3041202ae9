// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

// Package catalog supplies the event list to the map view.
//
// Events come from a JSON document, either a bare array of records or an
// object with an "events" array. Records that fail validation are skipped
// with a warning; a document that is not JSON at all is an error.
//
// Updates travel as watermill messages over an in-process gochannel pub/sub
// so the file watcher, the API and tests publish through one path and the
// view consumes them on its own loop.
package catalog

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/eventmap/internal/logging"
	"github.com/tomtom215/eventmap/internal/models"
	"github.com/tomtom215/eventmap/internal/validation"
)

// ErrInvalidDocument is returned for input that is not a catalog document.
var ErrInvalidDocument = errors.New("invalid catalog document")

// CodeUndecodable marks a record that is not a JSON event object.
const CodeUndecodable = "UNDECODABLE_RECORD"

// Batch is one decoded catalog document.
type Batch struct {
	Events   []models.EventRecord `json:"events"`
	Skipped  int                  `json:"skipped"`
	Rejected []Rejection          `json:"rejected,omitempty"`
}

// Rejection explains why one record of a document was skipped.
type Rejection struct {
	Index int                  `json:"index"`
	ID    string               `json:"id,omitempty"`
	Error *validation.APIError `json:"error"`
}

type envelope struct {
	Events []json.RawMessage `json:"events"`
}

// Decode parses a catalog document. Invalid records are dropped, counted in
// Batch.Skipped and explained in Batch.Rejected.
func Decode(data []byte) (Batch, error) {
	raw, err := splitRecords(data)
	if err != nil {
		return Batch{}, err
	}

	batch := Batch{Events: make([]models.EventRecord, 0, len(raw))}
	for i, r := range raw {
		var rec models.EventRecord
		if err := json.Unmarshal(r, &rec); err != nil {
			batch.reject(i, "", &validation.APIError{Code: CodeUndecodable, Message: err.Error()})
			logging.Warn().Int("index", i).Err(err).Msg("skipping undecodable catalog record")
			continue
		}
		if verr := validation.ValidateStruct(&rec); verr != nil {
			batch.reject(i, rec.ID, verr.ToAPIError())
			logging.Warn().Int("index", i).Str("id", rec.ID).Str("error", verr.Error()).Msg("skipping invalid catalog record")
			continue
		}
		batch.Events = append(batch.Events, rec)
	}
	return batch, nil
}

func (b *Batch) reject(index int, id string, apiErr *validation.APIError) {
	b.Skipped++
	b.Rejected = append(b.Rejected, Rejection{Index: index, ID: id, Error: apiErr})
}

func splitRecords(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidDocument)
	}

	switch trimmed[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		return raw, nil
	case '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		if env.Events == nil {
			return nil, fmt.Errorf("%w: missing events array", ErrInvalidDocument)
		}
		return env.Events, nil
	default:
		return nil, fmt.Errorf("%w: expected array or object", ErrInvalidDocument)
	}
}

// Encode serializes events as a catalog document.
func Encode(events []models.EventRecord) ([]byte, error) {
	if events == nil {
		events = []models.EventRecord{}
	}
	data, err := json.Marshal(document{Events: events})
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	return data, nil
}

// document is the encoded form of a catalog.
type document struct {
	Events []models.EventRecord `json:"events"`
}
