package geospatial

import "github.com/samirrijal/mapsurvey/internal/core/domain"

// Extent returns the smallest box containing every renderable point.
// ok is false when there is none.
func Extent(points []domain.GeoPoint) (b domain.Bounds, ok bool) {
	for _, p := range points {
		if !p.Renderable() {
			continue
		}
		if !ok {
			b = domain.Bounds{MinLat: p.Lat, MinLng: p.Lng, MaxLat: p.Lat, MaxLng: p.Lng}
			ok = true
			continue
		}
		b.MinLat = min(b.MinLat, p.Lat)
		b.MinLng = min(b.MinLng, p.Lng)
		b.MaxLat = max(b.MaxLat, p.Lat)
		b.MaxLng = max(b.MaxLng, p.Lng)
	}
	return b, ok
}

// Pad grows b by meters on every side, clamped to the WGS 84 range.
func Pad(b domain.Bounds, meters float64) domain.Bounds {
	if meters <= 0 {
		return b
	}
	minLat, minLng, _, _ := BoundingBox(b.MinLat, b.MinLng, meters)
	_, _, maxLat, maxLng := BoundingBox(b.MaxLat, b.MaxLng, meters)
	return domain.Bounds{
		MinLat: max(minLat, -90),
		MinLng: max(minLng, -180),
		MaxLat: min(maxLat, 90),
		MaxLng: min(maxLng, 180),
	}
}
