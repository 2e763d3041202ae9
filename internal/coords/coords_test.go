// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package coords

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    LatLng
		wantErr error
	}{
		{name: "delimited moscow", input: "55.7558, 37.6176", want: LatLng{Lat: 55.7558, Lng: 37.6176}},
		{name: "structured saint petersburg", input: `{"lat":59.93,"lng":30.36}`, want: LatLng{Lat: 59.93, Lng: 30.36}},
		{name: "structured with spaces", input: `  { "lng": 30.36, "lat": 59.93 }  `, want: LatLng{Lat: 59.93, Lng: 30.36}},
		{name: "bracketed pair", input: "[59.93, 30.36]", want: LatLng{Lat: 59.93, Lng: 30.36}},
		{name: "no space after comma", input: "59.93,30.36", want: LatLng{Lat: 59.93, Lng: 30.36}},
		{name: "padded fields", input: " 59.93 ,\t30.36 ", want: LatLng{Lat: 59.93, Lng: 30.36}},
		{name: "exponent and signs", input: "+5.5e1, -.5", want: LatLng{Lat: 55, Lng: -0.5}},
		{name: "negative values", input: "-33.8688, 151.2093", want: LatLng{Lat: -33.8688, Lng: 151.2093}},
		{name: "range edges", input: "90, -180", want: LatLng{Lat: 90, Lng: -180}},
		{name: "zero zero is valid", input: "0, 0", want: LatLng{}},

		{name: "empty", input: "", wantErr: ErrEmpty},
		{name: "blank", input: "   ", wantErr: ErrEmpty},
		{name: "word", input: "abc", wantErr: ErrMalformed},
		{name: "single number", input: "55.7", wantErr: ErrMalformed},
		{name: "three numbers", input: "55.7, 37.6, 120", wantErr: ErrMalformed},
		{name: "decimal commas", input: "55,7558 37,6176", wantErr: ErrMalformed},
		{name: "second token not numeric", input: "55.7, east", wantErr: ErrMalformed},
		{name: "whitespace separated", input: "55.7558 37.6176", wantErr: ErrMalformed},
		{name: "semicolon separated", input: "55.7558;37.6176", wantErr: ErrMalformed},
		{name: "doubled comma", input: "55.7558,,37.6176", wantErr: ErrMalformed},
		{name: "leading and trailing commas", input: ",55.7558,37.6176,", wantErr: ErrMalformed},
		{name: "empty latitude field", input: ", 37.6176", wantErr: ErrMalformed},
		{name: "empty longitude field", input: "55.7558, ", wantErr: ErrMalformed},
		{name: "hex floats", input: "0x1p4, 0x1p4", wantErr: ErrMalformed},
		{name: "underscore digits", input: "5_5.7, 37.6", wantErr: ErrMalformed},
		{name: "nan token", input: "NaN, 37.6", wantErr: ErrMalformed},
		{name: "infinite token", input: "55.7, Inf", wantErr: ErrMalformed},
		{name: "object missing lng", input: `{"lat":59.93}`, wantErr: ErrMalformed},
		{name: "object string field", input: `{"lat":"59.93","lng":30.36}`, wantErr: ErrMalformed},
		{name: "object broken json", input: `{"lat":59.93,"lng":`, wantErr: ErrMalformed},
		{name: "object null field", input: `{"lat":null,"lng":30.36}`, wantErr: ErrMalformed},
		{name: "array with null", input: "[null, 30.36]", wantErr: ErrMalformed},
		{name: "array too long", input: "[1, 2, 3]", wantErr: ErrMalformed},
		{name: "array of strings", input: `["59.93", "30.36"]`, wantErr: ErrMalformed},
		{name: "latitude out of range", input: "200, 37.6", wantErr: ErrOutOfRange},
		{name: "longitude out of range", input: "55.7, 181", wantErr: ErrOutOfRange},
		{name: "structured out of range", input: `{"lat":-91,"lng":0}`, wantErr: ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				var pe *ParseError
				if !errors.As(err, &pe) {
					t.Fatalf("Parse(%q) error type = %T, want *ParseError", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseOptional(t *testing.T) {
	valid := "55.7558, 37.6176"
	invalid := "200, 37.6"
	blank := ""

	if _, ok := ParseOptional(nil); ok {
		t.Error("nil input should not produce a coordinate")
	}
	if _, ok := ParseOptional(&blank); ok {
		t.Error("blank input should not produce a coordinate")
	}
	if _, ok := ParseOptional(&invalid); ok {
		t.Error("out of range input should not produce a coordinate")
	}
	got, ok := ParseOptional(&valid)
	if !ok {
		t.Fatal("valid input rejected")
	}
	if got.Lat != 55.7558 || got.Lng != 37.6176 {
		t.Errorf("got %+v", got)
	}
}

func TestReasonOf(t *testing.T) {
	cases := map[string]Reason{
		"":          ReasonEmpty,
		"abc":       ReasonMalformed,
		"200, 37.6": ReasonOutOfRange,
	}
	for input, want := range cases {
		_, err := Parse(input)
		if got := ReasonOf(err); got != want {
			t.Errorf("ReasonOf(Parse(%q)) = %s, want %s", input, got, want)
		}
	}
	if got := ReasonOf(errors.New("other")); got != ReasonMalformed {
		t.Errorf("foreign error reason = %s", got)
	}
}

func TestParseError_TruncatesLongInput(t *testing.T) {
	_, err := Parse(strings.Repeat("x", 500))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(err.Error()) > 300 {
		t.Errorf("error message too long: %d bytes", len(err.Error()))
	}
}

func TestParse_RoundTripsString(t *testing.T) {
	c, err := New(59.93, 30.36)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	back, err := Parse(c.String())
	if err != nil {
		t.Fatalf("Parse(%q): %v", c.String(), err)
	}
	if back != c {
		t.Errorf("round trip %+v != %+v", back, c)
	}
}

func TestNew_RejectsNonFinite(t *testing.T) {
	if _, err := New(math.NaN(), 0); !errors.Is(err, ErrMalformed) {
		t.Errorf("NaN latitude: %v", err)
	}
	if _, err := New(0, math.Inf(1)); !errors.Is(err, ErrMalformed) {
		t.Errorf("Inf longitude: %v", err)
	}
}

// FuzzParse checks that Parse never panics and only returns in-range values.
func FuzzParse(f *testing.F) {
	for _, seed := range []string{"55.7558, 37.6176", `{"lat":1,"lng":2}`, "[1,2]", "", "{", "[", "1e400, 0"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, input string) {
		c, err := Parse(input)
		if err != nil {
			return
		}
		if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
			t.Fatalf("Parse(%q) returned out of range %+v", input, c)
		}
	})
}
