// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package models

// EventRecord is a single event as supplied by the booking platform.
//
// StartTime and EndTime are kept verbatim; formatting tolerates values that
// do not parse as dates. RawCoordinate is nil when the platform has no
// location for the event.
type EventRecord struct {
	ID            string        `json:"id" validate:"required,max=128"`
	Title         string        `json:"title" validate:"required,max=512"`
	Category      string        `json:"category,omitempty" validate:"max=128"`
	VenueText     string        `json:"venue_text" validate:"max=512"`
	StartTime     string        `json:"start_time"`
	EndTime       *string       `json:"end_time,omitempty"`
	CoverImageURL string        `json:"cover_image_url,omitempty" validate:"omitempty,url"`
	RawCoordinate *string       `json:"raw_coordinate"`
	Tickets       []TicketPrice `json:"tickets,omitempty" validate:"dive"`
}

// TicketPrice is one ticket tier. A zero Amount is a free tier.
type TicketPrice struct {
	Name     string  `json:"name,omitempty" validate:"max=128"`
	Amount   float64 `json:"amount" validate:"gte=0"`
	Currency string  `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
}

// LowestPaidPrice returns the cheapest ticket with a positive amount.
// It reports false when the event has no paid tier.
func (e *EventRecord) LowestPaidPrice() (TicketPrice, bool) {
	var (
		best  TicketPrice
		found bool
	)
	for _, t := range e.Tickets {
		if t.Amount <= 0 {
			continue
		}
		if !found || t.Amount < best.Amount {
			best = t
			found = true
		}
	}
	return best, found
}

// HasCoordinate reports whether the record carries a non-nil coordinate
// string. It does not validate the value.
func (e *EventRecord) HasCoordinate() bool {
	return e.RawCoordinate != nil
}

// CloneEvents returns a shallow copy of events so that callers can keep the
// slice while the producer reuses its backing array.
func CloneEvents(events []EventRecord) []EventRecord {
	if events == nil {
		return nil
	}
	out := make([]EventRecord, len(events))
	copy(out, events)
	return out
}
