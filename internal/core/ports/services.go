package ports

import (
	"context"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
)

// EventPublisher publishes session events to a message broker.
type EventPublisher interface {
	PublishFeatureAdded(ctx context.Context, f *domain.Feature) error
	PublishFeatureRemoved(ctx context.Context, id string) error
	PublishCleared(ctx context.Context) error
	PublishStatus(ctx context.Context, view domain.StatusView) error
	PublishArchived(ctx context.Context, archiveID string, count int) error
}

// MapCanvas is the map widget as seen from the server: it receives render
// instructions and never reports back.
type MapCanvas interface {
	SetView(ctx context.Context, center domain.GeoPoint, zoom int) error
	FitBounds(ctx context.Context, bounds domain.Bounds, padding int) error
	AddMarker(ctx context.Context, m domain.Marker) error
	ClearMarkers(ctx context.Context) error
}

// Archiver moves the durable collection into a dated archive and empties it.
type Archiver interface {
	Archive(ctx context.Context) (domain.ArchiveResult, error)
}
