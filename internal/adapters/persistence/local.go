package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
	"github.com/samirrijal/mapsurvey/internal/core/ports"
	"github.com/samirrijal/mapsurvey/internal/pkg/export"
	"github.com/samirrijal/mapsurvey/internal/pkg/telemetry"
)

// Local persists the whole collection as one GeoJSON blob under
// "<namespace>:features". Every mutation rewrites the blob.
type Local struct {
	kv  ports.KeyValueStore
	key string
}

// NewLocal creates a Local adapter. An empty namespace defaults to "mapsurvey".
func NewLocal(kv ports.KeyValueStore, namespace string) *Local {
	if namespace == "" {
		namespace = "mapsurvey"
	}
	return &Local{kv: kv, key: namespace + ":features"}
}

// Key is the storage key of the collection blob.
func (l *Local) Key() string { return l.key }

func (l *Local) Mode() domain.PersistenceMode { return domain.PersistenceLocal }

func (l *Local) Insert(ctx context.Context, f domain.Feature, next []domain.Feature) (string, error) {
	err := observe(ctx, domain.PersistenceLocal, "insert", func(ctx context.Context) error {
		return l.write(ctx, next)
	}, telemetry.AttrFeatureID.String(f.ID))
	return "", err
}

func (l *Local) Delete(ctx context.Context, id string, next []domain.Feature) error {
	return observe(ctx, domain.PersistenceLocal, "delete", func(ctx context.Context) error {
		return l.write(ctx, next)
	}, telemetry.AttrFeatureID.String(id))
}

// Clear drops cleared from the blob and deletes the key once nothing is left.
func (l *Local) Clear(ctx context.Context, cleared []domain.Feature) error {
	return observe(ctx, domain.PersistenceLocal, "clear", func(ctx context.Context) error {
		current, err := l.read(ctx)
		if err != nil {
			return err
		}
		rest := without(current, cleared)
		if len(rest) == 0 {
			return l.kv.Delete(ctx, l.key)
		}
		return l.write(ctx, rest)
	}, telemetry.AttrFeatureCount.Int(len(cleared)))
}

func (l *Local) Restore(ctx context.Context, features []domain.Feature) error {
	return observe(ctx, domain.PersistenceLocal, "restore", func(ctx context.Context) error {
		return l.write(ctx, features)
	}, telemetry.AttrFeatureCount.Int(len(features)))
}

// Load decodes the stored blob. A missing or malformed blob yields an empty
// collection; only an unreachable store is an error.
func (l *Local) Load(ctx context.Context) ([]domain.Feature, error) {
	var out []domain.Feature
	err := observe(ctx, domain.PersistenceLocal, "load", func(ctx context.Context) error {
		var err error
		out, err = l.read(ctx)
		return err
	})
	return out, err
}

func (l *Local) read(ctx context.Context) ([]domain.Feature, error) {
	data, err := l.kv.Get(ctx, l.key)
	if errors.Is(err, domain.ErrNotFound) {
		slog.Debug("no saved features", "key", l.key)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	features, err := export.DecodeGeoJSON(data)
	if err != nil {
		slog.Debug("ignoring malformed saved features", "key", l.key, "error", err)
		return nil, nil
	}
	return features, nil
}

func (l *Local) write(ctx context.Context, features []domain.Feature) error {
	data, err := export.GeoJSON(features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}
	return l.kv.Set(ctx, l.key, data)
}
