package usecases_test

import (
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
	"github.com/samirrijal/mapsurvey/internal/core/usecases"
)

func newFeature(id string) domain.Feature {
	return domain.Feature{
		ID:        id,
		Timestamp: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
		Location:  domain.GeoPoint{Lat: 47.07, Lng: 15.44},
		PlaceName: "Stadtpark",
		Ratings:   map[string]float64{"happy": 4, "green": 5},
	}
}

func TestFeatureStore_AddRejectsDuplicate(t *testing.T) {
	s := usecases.NewFeatureStore()
	if err := s.Add(newFeature("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Add(newFeature("a")); !errors.Is(err, domain.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 feature, got %d", s.Len())
	}
}

func TestFeatureStore_RemoveMissing(t *testing.T) {
	s := usecases.NewFeatureStore()
	if err := s.Remove("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFeatureStore_RemoveKeepsOrder(t *testing.T) {
	s := usecases.NewFeatureStore()
	for _, id := range []string{"a", "b", "c"} {
		_ = s.Add(newFeature(id))
	}
	if err := s.Remove("b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := s.List()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if _, err := s.Get("c"); err != nil {
		t.Errorf("index not rebuilt: %v", err)
	}
}

func TestFeatureStore_ListIsSnapshot(t *testing.T) {
	s := usecases.NewFeatureStore()
	_ = s.Add(newFeature("a"))

	snap := s.List()
	snap[0].Ratings["happy"] = 1
	snap[0].PlaceName = "changed"
	_ = s.Add(newFeature("b"))

	if len(snap) != 1 {
		t.Errorf("snapshot grew after Add: %d", len(snap))
	}
	f, _ := s.Get("a")
	if f.Ratings["happy"] != 4 || f.PlaceName != "Stadtpark" {
		t.Errorf("store mutated through snapshot: %+v", f)
	}
}

func TestFeatureStore_ReplaceAllFirstWins(t *testing.T) {
	s := usecases.NewFeatureStore()
	_ = s.Add(newFeature("old"))

	first := newFeature("x")
	second := newFeature("x")
	second.PlaceName = "second"

	dropped := s.ReplaceAll([]domain.Feature{first, newFeature("y"), second})
	if dropped != 1 {
		t.Errorf("expected 1 dropped, got %d", dropped)
	}
	if s.Contains("old") {
		t.Error("replace kept previous contents")
	}
	f, _ := s.Get("x")
	if f.PlaceName != "Stadtpark" {
		t.Errorf("expected first occurrence, got %q", f.PlaceName)
	}
}

func TestFeatureStore_Clear(t *testing.T) {
	s := usecases.NewFeatureStore()
	_ = s.Add(newFeature("a"))
	s.Clear()
	if s.Len() != 0 || s.Contains("a") {
		t.Fatal("store not empty after Clear")
	}
	if err := s.Add(newFeature("a")); err != nil {
		t.Errorf("id not reusable after Clear: %v", err)
	}
}
