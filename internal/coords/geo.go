// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package coords

import (
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Web Mercator constants. A zoom-0 tile is tileSize pixels wide and covers
// the full equatorial circumference.
const (
	tileSize              = 256.0
	earthCircumferenceM   = 2 * math.Pi * 6378137.0
	defaultMaxZoom        = 17.0
	singlePointZoomOffset = 2.0
)

// toWebMercator projects lon/lat (EPSG:4326) to EPSG:3857 meters.
var toWebMercator = wgs84.EPSG().Transform(4326, 3857)

// Point returns the coordinate as a simplefeatures point (X=lng, Y=lat).
// The point marshals to GeoJSON. A coordinate that simplefeatures rejects
// (NaN or infinite, only reachable by building LatLng by hand) yields the
// empty point.
func (c LatLng) Point() geom.Point {
	pt, err := geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: c.Lng, Y: c.Lat},
		Type: geom.DimXY,
	})
	if err != nil {
		return geom.Point{}
	}
	return pt
}

// Mercator returns the Web Mercator projection of c in meters.
func (c LatLng) Mercator() (x, y float64) {
	x, y, _ = toWebMercator(c.Lng, c.Lat, 0)
	return x, y
}

// Bounds is an axis-aligned lat/lng rectangle.
type Bounds struct {
	SouthWest LatLng `json:"south_west"`
	NorthEast LatLng `json:"north_east"`
}

// BoundsOf returns the smallest rectangle containing every point.
// It reports false for an empty input.
func BoundsOf(points []LatLng) (Bounds, bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	b := Bounds{SouthWest: points[0], NorthEast: points[0]}
	for _, p := range points[1:] {
		b = b.Extend(p)
	}
	return b, true
}

// Extend grows b to include p.
func (b Bounds) Extend(p LatLng) Bounds {
	b.SouthWest.Lat = math.Min(b.SouthWest.Lat, p.Lat)
	b.SouthWest.Lng = math.Min(b.SouthWest.Lng, p.Lng)
	b.NorthEast.Lat = math.Max(b.NorthEast.Lat, p.Lat)
	b.NorthEast.Lng = math.Max(b.NorthEast.Lng, p.Lng)
	return b
}

// Center returns the midpoint of b in projected space, so that the visual
// center of a Mercator viewport is used rather than the arithmetic latitude.
func (b Bounds) Center() LatLng {
	x1, y1 := b.SouthWest.Mercator()
	x2, y2 := b.NorthEast.Mercator()
	return fromMercator((x1+x2)/2, (y1+y2)/2)
}

// FitZoom returns the largest zoom level at which b fits into a viewport of
// width x height pixels, capped at maxZoom (17 when maxZoom <= 0).
// A degenerate (single point) bounds returns maxZoom minus a small offset so
// a lone marker is not shown at street level.
func FitZoom(b Bounds, width, height int, maxZoom float64) float64 {
	if maxZoom <= 0 {
		maxZoom = defaultMaxZoom
	}
	if width <= 0 || height <= 0 {
		return 0
	}

	x1, y1 := b.SouthWest.Mercator()
	x2, y2 := b.NorthEast.Mercator()
	dx := math.Abs(x2 - x1)
	dy := math.Abs(y2 - y1)
	if dx == 0 && dy == 0 {
		return maxZoom - singlePointZoomOffset
	}

	zoom := maxZoom
	if dx > 0 {
		zoom = math.Min(zoom, math.Log2(float64(width)*earthCircumferenceM/(dx*tileSize)))
	}
	if dy > 0 {
		zoom = math.Min(zoom, math.Log2(float64(height)*earthCircumferenceM/(dy*tileSize)))
	}
	return math.Max(0, math.Floor(zoom))
}

// fromMercator inverts the spherical Web Mercator projection.
func fromMercator(x, y float64) LatLng {
	const r = 6378137.0
	lng := x / r * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(y/r)) - math.Pi/2) * 180 / math.Pi
	return LatLng{Lat: lat, Lng: lng}
}
