package persistence

import (
	"context"
	"fmt"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
)

// None keeps everything in memory; every write is committed immediately.
type None struct{}

func (None) Mode() domain.PersistenceMode { return domain.PersistenceNone }

func (None) Insert(context.Context, domain.Feature, []domain.Feature) (string, error) {
	return "", nil
}

func (None) Delete(context.Context, string, []domain.Feature) error { return nil }

func (None) Clear(context.Context, []domain.Feature) error { return nil }

func (None) Load(context.Context) ([]domain.Feature, error) { return nil, nil }

func (None) Restore(context.Context, []domain.Feature) error { return nil }

// Unavailable stands in for a configured backend that could not be reached
// at startup. It reports the configured mode and refuses every write.
type Unavailable struct {
	Configured domain.PersistenceMode
	Cause      error
}

func (u Unavailable) Mode() domain.PersistenceMode { return u.Configured }

func (u Unavailable) err() error {
	return fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, u.Cause)
}

func (u Unavailable) Insert(context.Context, domain.Feature, []domain.Feature) (string, error) {
	return "", u.err()
}

func (u Unavailable) Delete(context.Context, string, []domain.Feature) error { return u.err() }

func (u Unavailable) Clear(context.Context, []domain.Feature) error { return u.err() }

// Load returns nothing so the session starts empty.
func (u Unavailable) Load(context.Context) ([]domain.Feature, error) { return nil, nil }

func (u Unavailable) Restore(context.Context, []domain.Feature) error { return u.err() }
