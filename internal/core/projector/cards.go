package projector

import "github.com/samirrijal/mapsurvey/internal/core/domain"

// Cards returns the list view, newest first.
func Cards(snapshot []domain.Feature, axes []domain.Axis) []domain.Card {
	sorted := newestFirst(snapshot)
	cards := make([]domain.Card, 0, len(sorted))
	for _, f := range sorted {
		c := domain.Card{
			FeatureID:  f.ID,
			Title:      title(f),
			Coords:     f.Location.Label(),
			When:       FormatTime(f.Timestamp),
			Ratings:    ratingLabels(f, axes),
			Comment:    f.Comment,
			DeleteID:   f.ID,
			Renderable: f.Location.Renderable(),
		}
		if c.Renderable {
			c.Locate = &domain.LocateAction{Center: f.Location, Zoom: LocateZoom}
		}
		cards = append(cards, c)
	}
	return cards
}
