package projector

import (
	"context"
	"fmt"
	"sort"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
	"github.com/samirrijal/mapsurvey/internal/core/ports"
	"github.com/samirrijal/mapsurvey/internal/pkg/geospatial"
)

// FitPadding is the pixel padding passed to the map's fitBounds.
const FitPadding = 32

// Markers returns one styled point per renderable feature, newest first.
// Features with non-finite or out-of-range coordinates are skipped.
func Markers(snapshot []domain.Feature, axes []domain.Axis) []domain.Marker {
	sorted := newestFirst(snapshot)
	markers := make([]domain.Marker, 0, len(sorted))
	for _, f := range sorted {
		if !f.Location.Renderable() {
			continue
		}
		markers = append(markers, markerFor(f, axes))
	}
	return markers
}

func markerFor(f domain.Feature, axes []domain.Axis) domain.Marker {
	var primary, secondary float64 = nanRating, nanRating
	secondaryMax := len(Palette)
	if len(axes) > 0 {
		primary = f.Rating(axes[0].Key)
	}
	if len(axes) > 1 {
		secondary = f.Rating(axes[1].Key)
		secondaryMax = axes[1].Max
	}
	fill, stroke := colorFor(primary)

	return domain.Marker{
		FeatureID: f.ID,
		Point:     f.Location,
		Style: domain.MarkerStyle{
			Color:  fill,
			Stroke: stroke,
			Radius: radiusFor(secondary, secondaryMax),
		},
		Popup: domain.Popup{
			Title:    title(f),
			Ratings:  ratingLabels(f, axes),
			AgeGroup: f.AgeGroup,
			Gender:   f.Gender,
			Comment:  f.Comment,
			When:     FormatTime(f.Timestamp),
		},
	}
}

// Extent returns the padded bounds of the markers for fitBounds.
func Extent(markers []domain.Marker, paddingMeters float64) (domain.Bounds, bool) {
	points := make([]domain.GeoPoint, len(markers))
	for i, m := range markers {
		points[i] = m.Point
	}
	b, ok := geospatial.Extent(points)
	if !ok {
		return domain.Bounds{}, false
	}
	return geospatial.Pad(b, paddingMeters), true
}

// Render replays the marker view onto a map canvas.
func Render(ctx context.Context, canvas ports.MapCanvas, snapshot []domain.Feature, axes []domain.Axis) error {
	if err := canvas.ClearMarkers(ctx); err != nil {
		return fmt.Errorf("clear markers: %w", err)
	}
	markers := Markers(snapshot, axes)
	for _, m := range markers {
		if err := canvas.AddMarker(ctx, m); err != nil {
			return fmt.Errorf("add marker %s: %w", m.FeatureID, err)
		}
	}
	if b, ok := Extent(markers, 50); ok {
		if err := canvas.FitBounds(ctx, b, FitPadding); err != nil {
			return fmt.Errorf("fit bounds: %w", err)
		}
	}
	return nil
}

func title(f domain.Feature) string {
	if f.PlaceName == "" {
		return untitled
	}
	return f.PlaceName
}

func ratingLabels(f domain.Feature, axes []domain.Axis) []domain.RatingLabel {
	labels := make([]domain.RatingLabel, 0, len(axes))
	for _, a := range axes {
		labels = append(labels, domain.RatingLabel{
			Axis:  a.Key,
			Label: a.Label,
			Value: ClampRating(f.Rating(a.Key), a.Max),
			Max:   a.Max,
		})
	}
	return labels
}

// newestFirst copies and sorts by timestamp descending, id as tie-break.
func newestFirst(snapshot []domain.Feature) []domain.Feature {
	out := make([]domain.Feature, len(snapshot))
	copy(out, snapshot)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
