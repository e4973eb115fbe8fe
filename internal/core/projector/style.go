// Package projector derives render-ready views from a feature snapshot.
// Every function is pure: it reads the snapshot and returns new values.
package projector

import (
	"math"
	"time"
)

const (
	// BaseRadius is the marker radius for the lowest secondary rating.
	BaseRadius = 6.0
	// RadiusStep is added per secondary rating step above 1.
	RadiusStep = 2.0
	// LocateZoom is the zoom level used by a card's locate action.
	LocateZoom = 16
	// StatPlaceholder replaces the mean of an axis without finite values.
	StatPlaceholder = "--"

	untitled   = "Unnamed place"
	timeLayout = "2006-01-02 15:04"
)

// Palette is the fixed ordinal fill palette, index 0 is rating 1.
var Palette = [5]string{"#d7191c", "#fdae61", "#ffffbf", "#a6d96a", "#1a9641"}

// strokes darkens each palette entry for the marker outline.
var strokes = [5]string{"#8c1013", "#b57a3f", "#b3b386", "#6f9447", "#10612b"}

// ClampRating maps any raw rating onto [1, max]. Non-finite values default to
// the midpoint of the scale.
func ClampRating(v float64, max int) int {
	if max < 1 {
		max = 1
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return (max + 1) / 2
	}
	r := int(math.Round(v))
	if r < 1 {
		return 1
	}
	if r > max {
		return max
	}
	return r
}

// colorFor picks fill and stroke from the palette for a primary rating.
func colorFor(v float64) (fill, stroke string) {
	i := ClampRating(v, len(Palette)) - 1
	return Palette[i], strokes[i]
}

// radiusFor scales the marker radius linearly with the secondary rating.
func radiusFor(v float64, max int) float64 {
	return BaseRadius + RadiusStep*float64(ClampRating(v, max)-1)
}

// FormatTime is the human timestamp used by popups and cards.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return StatPlaceholder
	}
	return t.UTC().Format(timeLayout)
}
