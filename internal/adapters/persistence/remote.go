package persistence

import (
	"context"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
	"github.com/samirrijal/mapsurvey/internal/core/ports"
	"github.com/samirrijal/mapsurvey/internal/pkg/telemetry"
)

// Remote writes one row per feature to a hosted table.
type Remote struct {
	rows    ports.FeatureRows
	hydrate bool
	maxRows int
}

// NewRemote creates a Remote adapter. Load only reads rows back when hydrate
// is set; otherwise every session starts empty. maxRows of 0 means
// DefaultMaxRows and AllRows lifts the cap.
func NewRemote(rows ports.FeatureRows, hydrate bool, maxRows int) *Remote {
	if maxRows == 0 {
		maxRows = DefaultMaxRows
	}
	return &Remote{rows: rows, hydrate: hydrate, maxRows: maxRows}
}

func (r *Remote) Mode() domain.PersistenceMode { return domain.PersistenceRemote }

// Insert returns the id the database assigned.
func (r *Remote) Insert(ctx context.Context, f domain.Feature, _ []domain.Feature) (string, error) {
	var id string
	err := observe(ctx, domain.PersistenceRemote, "insert", func(ctx context.Context) error {
		var err error
		id, err = r.rows.Insert(ctx, &f)
		return err
	}, telemetry.AttrFeatureID.String(f.ID))
	return id, err
}

func (r *Remote) Delete(ctx context.Context, id string, _ []domain.Feature) error {
	return observe(ctx, domain.PersistenceRemote, "delete", func(ctx context.Context) error {
		return r.rows.Delete(ctx, id)
	}, telemetry.AttrFeatureID.String(id))
}

// Clear deletes the rows behind cleared. Rows the session never held, such
// as older rows left out of a capped hydrate, are kept.
func (r *Remote) Clear(ctx context.Context, cleared []domain.Feature) error {
	if len(cleared) == 0 {
		return nil
	}
	return observe(ctx, domain.PersistenceRemote, "clear", func(ctx context.Context) error {
		_, err := r.rows.DeleteIDs(ctx, featureIDs(cleared))
		return err
	}, telemetry.AttrFeatureCount.Int(len(cleared)))
}

func (r *Remote) Restore(ctx context.Context, features []domain.Feature) error {
	if len(features) == 0 {
		return nil
	}
	return observe(ctx, domain.PersistenceRemote, "restore", func(ctx context.Context) error {
		return r.rows.InsertBatch(ctx, features)
	}, telemetry.AttrFeatureCount.Int(len(features)))
}

// Load returns the newest rows, capped at maxRows unless it is AllRows.
func (r *Remote) Load(ctx context.Context) ([]domain.Feature, error) {
	if !r.hydrate {
		return nil, nil
	}
	var out []domain.Feature
	err := observe(ctx, domain.PersistenceRemote, "load", func(ctx context.Context) error {
		var err error
		out, err = r.rows.Recent(ctx, r.maxRows)
		return err
	})
	return out, err
}
