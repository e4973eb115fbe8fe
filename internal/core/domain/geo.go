package domain

import (
	"fmt"
	"math"
)

var nan = math.NaN()

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Finite reports whether both coordinates are finite numbers.
func (p GeoPoint) Finite() bool {
	return !math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0) &&
		!math.IsNaN(p.Lng) && !math.IsInf(p.Lng, 0)
}

// Renderable reports whether the point is finite and inside the WGS 84 range.
func (p GeoPoint) Renderable() bool {
	return p.Finite() && p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Label formats the point with five decimals, or a dash when it is not finite.
func (p GeoPoint) Label() string {
	if !p.Finite() {
		return CoordPlaceholder
	}
	return fmt.Sprintf("%.5f, %.5f", p.Lat, p.Lng)
}

// CoordPlaceholder is shown in place of non-finite coordinates.
const CoordPlaceholder = "–"

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Center returns the midpoint of the box.
func (b Bounds) Center() GeoPoint {
	return GeoPoint{Lat: (b.MinLat + b.MaxLat) / 2, Lng: (b.MinLng + b.MaxLng) / 2}
}
