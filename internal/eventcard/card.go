// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

// Package eventcard builds the per-event summary shown in a marker balloon
// and in the fallback list.
//
// Both render modes call Formatter.Card, so a map balloon and a list item for
// the same event always carry the same title, venue, date, time range and
// price.
package eventcard

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/tomtom215/eventmap/internal/models"
)

// DefaultPlaceholderImage is used when an event has no cover image.
const DefaultPlaceholderImage = "/static/img/event-placeholder.svg"

// Layouts accepted for event times, tried in order. Values without a zone
// are read in the formatter's location.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var currencySymbols = map[string]string{
	"RUB": "₽",
	"USD": "$",
	"EUR": "€",
}

// Card is the rendered summary of one event.
type Card struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Category  string `json:"category,omitempty"`
	Venue     string `json:"venue"`
	Label     string `json:"label"`
	ImageURL  string `json:"image_url"`
	HasImage  bool   `json:"has_image"`
	Date      string `json:"date"`
	DateKnown bool   `json:"date_known"`
	TimeRange string `json:"time_range,omitempty"`
	Price     string `json:"price"`
	Free      bool   `json:"free"`
}

// Options configures a Formatter.
type Options struct {
	// Locale is a BCP 47 tag or Accept-Language value. Default: ru.
	Locale string
	// PlaceholderImage replaces a missing cover image.
	PlaceholderImage string
	// Location is the zone dates are displayed in. Default: UTC.
	Location *time.Location
}

// Formatter turns event records into cards for one locale.
type Formatter struct {
	tag         language.Tag
	printer     *message.Printer
	placeholder string
	loc         *time.Location
}

// NewFormatter creates a formatter.
func NewFormatter(opts Options) *Formatter {
	tag := ResolveLocale(opts.Locale)
	if opts.PlaceholderImage == "" {
		opts.PlaceholderImage = DefaultPlaceholderImage
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Formatter{
		tag:         tag,
		printer:     message.NewPrinter(tag),
		placeholder: opts.PlaceholderImage,
		loc:         opts.Location,
	}
}

// Locale returns the resolved locale tag.
func (f *Formatter) Locale() string {
	return f.tag.String()
}

// Card builds the summary for e. It never fails: unknown dates and missing
// images are replaced by placeholders.
func (f *Formatter) Card(e *models.EventRecord) Card {
	c := Card{
		ID:       e.ID,
		Title:    strings.TrimSpace(e.Title),
		Category: strings.TrimSpace(e.Category),
		Venue:    strings.TrimSpace(e.VenueText),
	}
	c.Label = joinLabel(c.Category, c.Venue)

	if u := strings.TrimSpace(e.CoverImageURL); u != "" {
		c.ImageURL = u
		c.HasImage = true
	} else {
		c.ImageURL = f.placeholder
	}

	start, startHasClock, ok := f.parseTime(e.StartTime)
	if ok {
		c.Date = f.formatDate(start)
		c.DateKnown = true
		if startHasClock {
			c.TimeRange = start.Format("15:04")
			if e.EndTime != nil {
				if end, endHasClock, ok := f.parseTime(*e.EndTime); ok && endHasClock && !end.Before(start) {
					c.TimeRange += "–" + end.Format("15:04")
				}
			}
		}
	} else {
		c.Date = f.printer.Sprintf(keyDateUnknown)
	}

	if t, paid := e.LowestPaidPrice(); paid {
		c.Price = f.printer.Sprintf(keyPriceFrom, f.formatAmount(t.Amount), currencySymbol(t.Currency))
	} else {
		c.Price = f.printer.Sprintf(keyFree)
		c.Free = true
	}
	return c
}

// Cards builds a card per event, preserving order.
func (f *Formatter) Cards(events []models.EventRecord) []Card {
	out := make([]Card, len(events))
	for i := range events {
		out[i] = f.Card(&events[i])
	}
	return out
}

// Text returns the localized string for a fallback UI key.
func (f *Formatter) Text(key string) string {
	return f.printer.Sprintf(key)
}

// RetryLabel, MapFailedNotice and NoEventsNotice are the fallback page copy.
func (f *Formatter) RetryLabel() string      { return f.Text(keyRetry) }
func (f *Formatter) MapFailedNotice() string { return f.Text(keyMapFailed) }
func (f *Formatter) NoEventsNotice() string  { return f.Text(keyNoEvents) }

func (f *Formatter) parseTime(raw string) (t time.Time, hasClock bool, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, false
	}
	for _, layout := range timeLayouts {
		parsed, err := time.ParseInLocation(layout, raw, f.loc)
		if err != nil {
			continue
		}
		return parsed.In(f.loc), layout != "2006-01-02", true
	}
	return time.Time{}, false, false
}

func (f *Formatter) formatDate(t time.Time) string {
	if f.tag == language.Russian {
		return t.Format("02.01.2006")
	}
	return t.Format("Jan 2, 2006")
}

func (f *Formatter) formatAmount(v float64) string {
	return f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

func currencySymbol(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return currencySymbols["RUB"]
	}
	if s, ok := currencySymbols[code]; ok {
		return s
	}
	return code
}

func joinLabel(category, venue string) string {
	switch {
	case category != "" && venue != "":
		return category + " · " + venue
	case category != "":
		return category
	default:
		return venue
	}
}
