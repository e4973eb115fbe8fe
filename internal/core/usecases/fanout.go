package usecases

import (
	"context"
	"errors"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
	"github.com/samirrijal/mapsurvey/internal/core/ports"
)

// FanOut delivers every event to each publisher in turn. One failing
// publisher does not stop the others; their errors are joined.
type FanOut []ports.EventPublisher

func (f FanOut) each(fn func(ports.EventPublisher) error) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := fn(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishFeatureAdded forwards an added feature to every publisher.
func (f FanOut) PublishFeatureAdded(ctx context.Context, feat *domain.Feature) error {
	return f.each(func(p ports.EventPublisher) error { return p.PublishFeatureAdded(ctx, feat) })
}

// PublishFeatureRemoved forwards a removal to every publisher.
func (f FanOut) PublishFeatureRemoved(ctx context.Context, id string) error {
	return f.each(func(p ports.EventPublisher) error { return p.PublishFeatureRemoved(ctx, id) })
}

// PublishCleared forwards a cleared collection to every publisher.
func (f FanOut) PublishCleared(ctx context.Context) error {
	return f.each(func(p ports.EventPublisher) error { return p.PublishCleared(ctx) })
}

// PublishStatus forwards a status view to every publisher.
func (f FanOut) PublishStatus(ctx context.Context, view domain.StatusView) error {
	return f.each(func(p ports.EventPublisher) error { return p.PublishStatus(ctx, view) })
}

// PublishArchived forwards a completed archive to every publisher.
func (f FanOut) PublishArchived(ctx context.Context, archiveID string, count int) error {
	return f.each(func(p ports.EventPublisher) error { return p.PublishArchived(ctx, archiveID, count) })
}
