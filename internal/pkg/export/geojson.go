// Package export serializes feature snapshots to GeoJSON and CSV.
package export

import (
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
)

// GeoJSON encodes the snapshot as a FeatureCollection with one feature per
// record. Coordinates are [lng, lat]. A record whose coordinates are not
// finite keeps its properties with a null geometry; non-finite ratings are
// omitted.
func GeoJSON(snapshot []domain.Feature) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, f := range snapshot {
		fc.Append(Feature(f))
	}
	return fc.MarshalJSON()
}

// Feature converts one feature to a GeoJSON Point feature, or to a feature
// with a null geometry when the location is not finite.
func Feature(f domain.Feature) *geojson.Feature {
	var geom orb.Geometry
	if f.Location.Finite() {
		geom = orb.Point{f.Location.Lng, f.Location.Lat}
	}
	gf := geojson.NewFeature(geom)
	gf.ID = f.ID
	gf.Properties["id"] = f.ID
	gf.Properties["timestamp"] = f.Timestamp.UTC().Format(time.RFC3339Nano)
	gf.Properties["placeName"] = f.PlaceName
	gf.Properties["comment"] = f.Comment
	gf.Properties["age_group"] = f.AgeGroup
	gf.Properties["gender"] = f.Gender

	ratings := make(map[string]interface{}, len(f.Ratings))
	for k, v := range f.Ratings {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		ratings[k] = v
	}
	gf.Properties["ratings"] = ratings
	return gf
}

// DecodeGeoJSON parses what GeoJSON produced. Anything that is not a
// FeatureCollection of identified Points is rejected as a whole; a null
// geometry decodes to a NaN location.
func DecodeGeoJSON(data []byte) ([]domain.Feature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedState, err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: type %q", domain.ErrMalformedState, fc.Type)
	}

	features := make([]domain.Feature, 0, len(fc.Features))
	for i, gf := range fc.Features {
		f, err := decodeFeature(gf)
		if err != nil {
			return nil, fmt.Errorf("%w: feature %d: %v", domain.ErrMalformedState, i, err)
		}
		features = append(features, f)
	}
	return features, nil
}

func decodeFeature(gf *geojson.Feature) (domain.Feature, error) {
	if gf == nil {
		return domain.Feature{}, fmt.Errorf("null feature")
	}
	loc := domain.GeoPoint{Lat: math.NaN(), Lng: math.NaN()}
	if gf.Geometry != nil {
		pt, ok := gf.Geometry.(orb.Point)
		if !ok {
			return domain.Feature{}, fmt.Errorf("geometry is not a point")
		}
		loc = domain.GeoPoint{Lat: pt.Lat(), Lng: pt.Lon()}
	}

	id, _ := gf.Properties["id"].(string)
	if id == "" {
		return domain.Feature{}, fmt.Errorf("missing id")
	}

	var ts time.Time
	if raw, ok := gf.Properties["timestamp"].(string); ok && raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.Feature{}, fmt.Errorf("timestamp: %w", err)
		}
		ts = parsed
	}

	f := domain.Feature{
		ID:        id,
		Timestamp: ts,
		Location:  loc,
		PlaceName: stringProp(gf.Properties, "placeName"),
		Comment:   stringProp(gf.Properties, "comment"),
		AgeGroup:  stringProp(gf.Properties, "age_group"),
		Gender:    stringProp(gf.Properties, "gender"),
		Ratings:   map[string]float64{},
	}
	if raw, ok := gf.Properties["ratings"].(map[string]interface{}); ok {
		for k, v := range raw {
			if n, ok := v.(float64); ok {
				f.Ratings[k] = n
			}
		}
	}
	return f, nil
}

func stringProp(p geojson.Properties, key string) string {
	s, _ := p[key].(string)
	return s
}
