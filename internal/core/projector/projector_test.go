package projector_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
	"github.com/samirrijal/mapsurvey/internal/core/projector"
)

var axes = domain.DefaultAxes()

func feature(id string, ts time.Time, lat, lng, happy, green float64) domain.Feature {
	return domain.Feature{
		ID:        id,
		Timestamp: ts,
		Location:  domain.GeoPoint{Lat: lat, Lng: lng},
		PlaceName: "Place " + id,
		Ratings:   map[string]float64{"happy": happy, "green": green},
	}
}

func TestClampRating(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{1, 1}, {5, 5}, {3.4, 3}, {0, 1}, {-7, 1}, {9, 5}, {math.NaN(), 3}, {math.Inf(1), 3},
	}
	for _, c := range cases {
		if got := projector.ClampRating(c.in, 5); got != c.want {
			t.Errorf("ClampRating(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestMarkers_StyleFromRatings(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	snap := []domain.Feature{
		feature("a", now, 47.0, 15.4, 5, 2),
		feature("b", now.Add(-time.Minute), 47.1, 15.5, 1, 5),
	}

	markers := projector.Markers(snap, axes)
	if len(markers) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(markers))
	}
	if markers[0].FeatureID != "a" {
		t.Errorf("expected newest first, got %s", markers[0].FeatureID)
	}
	if markers[0].Style.Color != projector.Palette[4] {
		t.Errorf("expected color for rating 5, got %s", markers[0].Style.Color)
	}
	if markers[0].Style.Radius != projector.BaseRadius+projector.RadiusStep {
		t.Errorf("unexpected radius %v", markers[0].Style.Radius)
	}
	if markers[1].Style.Color != projector.Palette[0] {
		t.Errorf("expected color for rating 1, got %s", markers[1].Style.Color)
	}
	if markers[1].Style.Radius != projector.BaseRadius+4*projector.RadiusStep {
		t.Errorf("unexpected radius %v", markers[1].Style.Radius)
	}
	if markers[0].Popup.When != "2026-10-15 12:00" {
		t.Errorf("unexpected popup time %q", markers[0].Popup.When)
	}
}

func TestMarkers_OutOfRangeRatingsNeverOverflowPalette(t *testing.T) {
	now := time.Now()
	snap := []domain.Feature{
		feature("hi", now, 47, 15, 42, 99),
		feature("lo", now, 47, 15, -3, -1),
		feature("nan", now, 47, 15, math.NaN(), math.NaN()),
		{ID: "unrated", Timestamp: now, Location: domain.GeoPoint{Lat: 47, Lng: 15}},
	}
	markers := projector.Markers(snap, axes)
	if len(markers) != 4 {
		t.Fatalf("expected 4 markers, got %d", len(markers))
	}
	for _, m := range markers {
		if m.Style.Radius < projector.BaseRadius || m.Style.Radius > projector.BaseRadius+4*projector.RadiusStep {
			t.Errorf("%s: radius %v out of range", m.FeatureID, m.Style.Radius)
		}
		if m.Style.Color == "" {
			t.Errorf("%s: empty color", m.FeatureID)
		}
	}
}

func TestMarkers_SkipsUnrenderable(t *testing.T) {
	now := time.Now()
	snap := []domain.Feature{
		feature("ok", now, 47, 15, 3, 3),
		feature("nan", now, math.NaN(), 15, 3, 3),
		feature("inf", now, 47, math.Inf(-1), 3, 3),
		feature("range", now, 91, 15, 3, 3),
	}
	markers := projector.Markers(snap, axes)
	if len(markers) != 1 || markers[0].FeatureID != "ok" {
		t.Fatalf("expected only the renderable feature, got %+v", markers)
	}
}

func TestCards_NewestFirstWithPlaceholders(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := []domain.Feature{
		feature("old", base, 47.123456, 15.4, 3, 3),
		feature("new", base.Add(time.Hour), math.NaN(), 15.4, 3, 3),
	}
	cards := projector.Cards(snap, axes)
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	if cards[0].FeatureID != "new" {
		t.Errorf("expected newest first, got %s", cards[0].FeatureID)
	}
	if cards[0].Coords != domain.CoordPlaceholder {
		t.Errorf("expected placeholder coords, got %q", cards[0].Coords)
	}
	if cards[0].Locate != nil {
		t.Error("unrenderable card must not offer locate")
	}
	if cards[1].Coords != "47.12346, 15.40000" {
		t.Errorf("unexpected coords %q", cards[1].Coords)
	}
	if cards[1].Locate == nil || cards[1].Locate.Zoom != projector.LocateZoom {
		t.Errorf("expected locate action, got %+v", cards[1].Locate)
	}
	if cards[1].DeleteID != "old" {
		t.Errorf("expected delete action bound to old, got %q", cards[1].DeleteID)
	}
}

func TestStats_Means(t *testing.T) {
	now := time.Now()
	snap := []domain.Feature{
		feature("a", now, 47, 15, 5, 1),
		feature("b", now, 47, 15, 3, 5),
	}
	stats := projector.Stats(snap, axes)
	if stats.Count != 2 {
		t.Errorf("expected count 2, got %d", stats.Count)
	}
	if stats.Axes[0].Average != "4.0 / 5" {
		t.Errorf("expected happiness 4.0 / 5, got %q", stats.Axes[0].Average)
	}
	if stats.Axes[1].Average != "3.0 / 5" {
		t.Errorf("expected green 3.0 / 5, got %q", stats.Axes[1].Average)
	}
}

func TestStats_EmptyAndNonFinite(t *testing.T) {
	stats := projector.Stats(nil, axes)
	if stats.Count != 0 {
		t.Errorf("expected count 0, got %d", stats.Count)
	}
	for _, a := range stats.Axes {
		if a.Average != projector.StatPlaceholder {
			t.Errorf("%s: expected placeholder, got %q", a.Axis, a.Average)
		}
	}

	snap := []domain.Feature{feature("a", time.Now(), 47, 15, math.NaN(), 4)}
	stats = projector.Stats(snap, axes)
	if stats.Axes[0].Average != projector.StatPlaceholder {
		t.Errorf("expected placeholder for all-NaN axis, got %q", stats.Axes[0].Average)
	}
	if stats.Axes[1].Average != "4.0 / 5" {
		t.Errorf("unexpected green mean %q", stats.Axes[1].Average)
	}
}

func TestEmptySnapshot(t *testing.T) {
	if m := projector.Markers(nil, axes); len(m) != 0 {
		t.Errorf("expected no markers, got %d", len(m))
	}
	if c := projector.Cards(nil, axes); len(c) != 0 {
		t.Errorf("expected no cards, got %d", len(c))
	}
	if _, ok := projector.Extent(nil, 50); ok {
		t.Error("expected no extent for empty markers")
	}
}

// --- recording canvas ---

type recordingCanvas struct {
	calls   []string
	markers int
	bounds  *domain.Bounds
	failAdd bool
}

func (c *recordingCanvas) SetView(ctx context.Context, center domain.GeoPoint, zoom int) error {
	c.calls = append(c.calls, "setView")
	return nil
}

func (c *recordingCanvas) FitBounds(ctx context.Context, b domain.Bounds, padding int) error {
	c.calls = append(c.calls, "fitBounds")
	c.bounds = &b
	return nil
}

func (c *recordingCanvas) AddMarker(ctx context.Context, m domain.Marker) error {
	if c.failAdd {
		return errors.New("canvas gone")
	}
	c.calls = append(c.calls, "addMarker")
	c.markers++
	return nil
}

func (c *recordingCanvas) ClearMarkers(ctx context.Context) error {
	c.calls = append(c.calls, "clearMarkers")
	return nil
}

func TestRender(t *testing.T) {
	now := time.Now()
	snap := []domain.Feature{
		feature("a", now, 47.0, 15.4, 5, 2),
		feature("b", now, 47.2, 15.6, 3, 3),
		feature("c", now, math.NaN(), 15.6, 3, 3),
	}
	canvas := &recordingCanvas{}
	if err := projector.Render(context.Background(), canvas, snap, axes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canvas.calls[0] != "clearMarkers" || canvas.calls[len(canvas.calls)-1] != "fitBounds" {
		t.Errorf("unexpected call order %v", canvas.calls)
	}
	if canvas.markers != 2 {
		t.Errorf("expected 2 markers, got %d", canvas.markers)
	}
	if canvas.bounds.MinLat >= 47.0 || canvas.bounds.MaxLat <= 47.2 {
		t.Errorf("expected padded bounds, got %+v", canvas.bounds)
	}
}

func TestRender_EmptyOnlyClears(t *testing.T) {
	canvas := &recordingCanvas{}
	if err := projector.Render(context.Background(), canvas, nil, axes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(canvas.calls) != 1 || canvas.calls[0] != "clearMarkers" {
		t.Errorf("expected only clearMarkers, got %v", canvas.calls)
	}
}

func TestRender_CanvasError(t *testing.T) {
	canvas := &recordingCanvas{failAdd: true}
	snap := []domain.Feature{feature("a", time.Now(), 47, 15, 3, 3)}
	if err := projector.Render(context.Background(), canvas, snap, axes); err == nil {
		t.Error("expected error from failing canvas")
	}
}
