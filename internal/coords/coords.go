// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

// Package coords normalizes free-form event coordinates into validated
// latitude/longitude pairs.
//
// Event records arrive with a coordinate string in one of three encodings:
//
//	{"lat": 55.7558, "lng": 37.6176}   structured object
//	[55.7558, 37.6176]                 bracketed pair (lat, lng)
//	55.7558, 37.6176                   delimited pair (lat, lng)
//
// Anything else is rejected. Parse never panics; every failure is reported as
// a *ParseError so callers can drop the event and keep rendering the rest.
package coords

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Sentinel errors wrapped by ParseError.
var (
	// ErrEmpty means no coordinate was supplied. Not a data error.
	ErrEmpty = errors.New("coordinate is empty")

	// ErrMalformed means the input matched none of the accepted encodings.
	ErrMalformed = errors.New("coordinate is malformed")

	// ErrOutOfRange means the pair decoded but lies outside WGS84 bounds.
	ErrOutOfRange = errors.New("coordinate is out of range")
)

// Reason is a short machine-readable failure class, used as a metric label.
type Reason string

const (
	ReasonEmpty      Reason = "empty"
	ReasonMalformed  Reason = "malformed"
	ReasonOutOfRange Reason = "out_of_range"
)

// maxEchoLen bounds how much of the raw input is echoed in error messages.
const maxEchoLen = 64

// LatLng is a validated WGS84 coordinate.
// Lat is within [-90, 90], Lng within [-180, 180], both finite.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String formats the pair in the delimited encoding accepted by Parse.
func (c LatLng) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + ", " + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// ParseError describes why a coordinate string was rejected.
type ParseError struct {
	Input  string
	Reason Reason
	Detail string
	err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse coordinate %q: %v", echo(e.Input), e.err)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap returns the sentinel (ErrEmpty, ErrMalformed or ErrOutOfRange).
func (e *ParseError) Unwrap() error {
	return e.err
}

func newParseError(input string, sentinel error, detail string) *ParseError {
	reason := ReasonMalformed
	switch {
	case errors.Is(sentinel, ErrEmpty):
		reason = ReasonEmpty
	case errors.Is(sentinel, ErrOutOfRange):
		reason = ReasonOutOfRange
	}
	return &ParseError{Input: input, Reason: reason, Detail: detail, err: sentinel}
}

// ReasonOf extracts the failure class from an error returned by Parse.
// Errors that did not come from this package are reported as malformed.
func ReasonOf(err error) Reason {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return ReasonMalformed
}

// New validates a numeric pair.
func New(lat, lng float64) (LatLng, error) {
	input := strconv.FormatFloat(lat, 'g', -1, 64) + ", " + strconv.FormatFloat(lng, 'g', -1, 64)
	return validate(input, lat, lng)
}

// Parse decodes raw into a coordinate. Blank input yields an ErrEmpty
// ParseError; callers treating absence as "not plotted" should use
// ParseOptional.
func Parse(raw string) (LatLng, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return LatLng{}, newParseError(raw, ErrEmpty, "")
	}

	var (
		lat, lng float64
		err      error
	)
	switch s[0] {
	case '{':
		lat, lng, err = decodeObject(s)
	case '[':
		lat, lng, err = decodeArray(s)
	default:
		lat, lng, err = decodeDelimited(s)
	}
	if err != nil {
		return LatLng{}, newParseError(raw, ErrMalformed, err.Error())
	}

	return validate(raw, lat, lng)
}

// ParseOptional is Parse for nullable input. It reports false for a nil or
// blank string and for any rejected value.
func ParseOptional(raw *string) (LatLng, bool) {
	if raw == nil {
		return LatLng{}, false
	}
	c, err := Parse(*raw)
	if err != nil {
		return LatLng{}, false
	}
	return c, true
}

func validate(input string, lat, lng float64) (LatLng, error) {
	if !finite(lat) || !finite(lng) {
		return LatLng{}, newParseError(input, ErrMalformed, "non-finite value")
	}
	if lat < -90 || lat > 90 {
		return LatLng{}, newParseError(input, ErrOutOfRange, fmt.Sprintf("latitude %g", lat))
	}
	if lng < -180 || lng > 180 {
		return LatLng{}, newParseError(input, ErrOutOfRange, fmt.Sprintf("longitude %g", lng))
	}
	return LatLng{Lat: lat, Lng: lng}, nil
}

// structuredPoint uses pointers so that a missing key is distinguishable
// from an explicit zero.
type structuredPoint struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func decodeObject(s string) (float64, float64, error) {
	var p structuredPoint
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return 0, 0, fmt.Errorf("decode object: %w", err)
	}
	if p.Lat == nil || p.Lng == nil {
		return 0, 0, errors.New("object requires numeric lat and lng")
	}
	return *p.Lat, *p.Lng, nil
}

func decodeArray(s string) (float64, float64, error) {
	var pair []*float64
	if err := json.Unmarshal([]byte(s), &pair); err != nil {
		return 0, 0, fmt.Errorf("decode array: %w", err)
	}
	if len(pair) != 2 {
		return 0, 0, fmt.Errorf("array requires 2 numbers, got %d", len(pair))
	}
	if pair[0] == nil || pair[1] == nil {
		return 0, 0, errors.New("array contains null")
	}
	return *pair[0], *pair[1], nil
}

// decimalNumber accepts plain decimal notation with an optional exponent.
// Hex floats, underscores, inf and nan are rejected.
var decimalNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

func decodeDelimited(s string) (float64, float64, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected one comma between lat and lng, got %d fields", len(fields))
	}
	lat, err := parseDecimal(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}
	lng, err := parseDecimal(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}
	return lat, lng, nil
}

func parseDecimal(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, errors.New("empty field")
	}
	if !decimalNumber.MatchString(field) {
		return 0, fmt.Errorf("%q is not a decimal number", echo(field))
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a decimal number", echo(field))
	}
	return v, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func echo(s string) string {
	if len(s) <= maxEchoLen {
		return s
	}
	return s[:maxEchoLen] + "..."
}
