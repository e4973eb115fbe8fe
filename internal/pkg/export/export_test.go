package export_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
	"github.com/samirrijal/mapsurvey/internal/pkg/export"
)

func sample() []domain.Feature {
	ts := time.Date(2026, 10, 15, 9, 30, 0, 123000000, time.UTC)
	return []domain.Feature{
		{
			ID:        "f1",
			Timestamp: ts,
			Location:  domain.GeoPoint{Lat: 47.0, Lng: 15.4},
			PlaceName: "Park",
			Ratings:   map[string]float64{"happy": 5, "green": 1},
			Comment:   `say "hi", twice`,
			AgeGroup:  "25-34",
			Gender:    "f",
		},
		{
			ID:        "f2",
			Timestamp: ts.Add(time.Minute),
			Location:  domain.GeoPoint{Lat: -33.9, Lng: 151.2},
			Ratings:   map[string]float64{"happy": 3, "green": 5},
		},
	}
}

func TestGeoJSON_CoordinateOrderAndProperties(t *testing.T) {
	data, err := export.GeoJSON(sample())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if doc.Type != "FeatureCollection" {
		t.Errorf("expected FeatureCollection, got %s", doc.Type)
	}
	if len(doc.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(doc.Features))
	}
	g := doc.Features[0].Geometry
	if g.Type != "Point" || g.Coordinates[0] != 15.4 || g.Coordinates[1] != 47.0 {
		t.Errorf("expected Point [15.4, 47], got %s %v", g.Type, g.Coordinates)
	}
	props := doc.Features[0].Properties
	if props["id"] != "f1" || props["placeName"] != "Park" {
		t.Errorf("unexpected properties %v", props)
	}
	if props["timestamp"] != "2026-10-15T09:30:00.123Z" {
		t.Errorf("unexpected timestamp %v", props["timestamp"])
	}
}

func TestGeoJSON_RoundTrip(t *testing.T) {
	in := sample()
	data, err := export.GeoJSON(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := export.DecodeGeoJSON(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d features, got %d", len(in), len(out))
	}
	for i := range in {
		if !in[i].Timestamp.Equal(out[i].Timestamp) {
			t.Errorf("%s: timestamp %v != %v", in[i].ID, in[i].Timestamp, out[i].Timestamp)
		}
		out[i].Timestamp = in[i].Timestamp
		if !reflect.DeepEqual(in[i], out[i]) {
			t.Errorf("round trip mismatch:\n in: %+v\nout: %+v", in[i], out[i])
		}
	}
}

func TestGeoJSON_Empty(t *testing.T) {
	data, err := export.GeoJSON(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := export.DecodeGeoJSON(data)
	if err != nil {
		t.Fatalf("decode empty: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty, got %d", len(out))
	}
}

func TestGeoJSON_NonFiniteLocationHasNullGeometry(t *testing.T) {
	snap := sample()
	snap[1].Location.Lat = math.NaN()
	snap[0].Ratings["green"] = math.Inf(1)
	data, err := export.GeoJSON(snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc struct {
		Features []struct {
			Geometry   json.RawMessage        `json:"geometry"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(doc.Features) != 2 {
		t.Fatalf("expected one feature per record, got %d", len(doc.Features))
	}
	if string(doc.Features[1].Geometry) != "null" || doc.Features[1].Properties["id"] != "f2" {
		t.Errorf("expected f2 with null geometry, got %s %v", doc.Features[1].Geometry, doc.Features[1].Properties)
	}

	out, err := export.DecodeGeoJSON(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 || out[1].ID != "f2" {
		t.Fatalf("expected f1 and f2, got %+v", out)
	}
	if !math.IsNaN(out[1].Location.Lat) || !math.IsNaN(out[1].Location.Lng) {
		t.Errorf("expected NaN location, got %+v", out[1].Location)
	}
	if out[1].Ratings["happy"] != 3 {
		t.Errorf("properties lost: %+v", out[1])
	}
	if _, ok := out[0].Ratings["green"]; ok {
		t.Error("non-finite rating should have been omitted")
	}
}

func TestDecodeGeoJSON_Malformed(t *testing.T) {
	inputs := []string{
		"not json",
		`{"type":"Feature","geometry":null,"properties":{}}`,
		`{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":{"id":"x"}}]}`,
		`{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{}}]}`,
		`{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"id":"x","timestamp":"yesterday"}}]}`,
	}
	for _, in := range inputs {
		if _, err := export.DecodeGeoJSON([]byte(in)); !errors.Is(err, domain.ErrMalformedState) {
			t.Errorf("%q: expected ErrMalformedState, got %v", in, err)
		}
	}
}

func TestCSV_HeaderOnlyWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := export.CSV(&buf, nil, domain.DefaultAxes()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `"id","timestamp","placeName","lat","lng","happy","green","comment","age_group","gender"` + "\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestCSV_RowsAndQuoting(t *testing.T) {
	var buf bytes.Buffer
	if err := export.CSV(&buf, sample(), domain.DefaultAxes()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	want := `"f1","2026-10-15T09:30:00Z","Park","47","15.4","5","1","say ""hi"", twice","25-34","f"`
	if lines[1] != want {
		t.Errorf("got  %s\nwant %s", lines[1], want)
	}
	if !strings.HasPrefix(lines[2], `"f2",`) {
		t.Errorf("unexpected second row %s", lines[2])
	}
}

func TestCSV_NonFiniteValuesEmpty(t *testing.T) {
	snap := []domain.Feature{{ID: "x", Location: domain.GeoPoint{Lat: math.NaN(), Lng: 1}}}
	var buf bytes.Buffer
	if err := export.CSV(&buf, snap, domain.DefaultAxes()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"x","0001-01-01T00:00:00Z","","","1","","","","",""`) {
		t.Errorf("unexpected row: %q", buf.String())
	}
}

func TestFilename(t *testing.T) {
	got := export.Filename("mapsurvey", "csv", time.Date(2026, 10, 15, 23, 0, 0, 0, time.UTC))
	if got != "mapsurvey-2026-10-15.csv" {
		t.Errorf("unexpected filename %q", got)
	}
}
