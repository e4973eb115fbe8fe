package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
)

// FeatureRepo implements ports.FeatureRows with pgx.
type FeatureRepo struct {
	db *DB
}

// NewFeatureRepo creates a new FeatureRepo.
func NewFeatureRepo(db *DB) *FeatureRepo {
	return &FeatureRepo{db: db}
}

// Insert stores one feature and returns the server-assigned id.
func (r *FeatureRepo) Insert(ctx context.Context, f *domain.Feature) (string, error) {
	var id string
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO survey_features (client_id, created_at, lat, lng, place_name, ratings, comment, age_group, gender)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id::text
	`, f.ID, f.Timestamp, f.Location.Lat, f.Location.Lng, f.PlaceName,
		finiteRatings(f.Ratings), f.Comment, f.AgeGroup, f.Gender,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert feature: %w", err)
	}
	return id, nil
}

// InsertBatch writes many features in one round trip, keeping their ids.
// Rows whose id is already present are left alone.
func (r *FeatureRepo) InsertBatch(ctx context.Context, features []domain.Feature) error {
	batch := &pgx.Batch{}
	for _, f := range features {
		batch.Queue(`
			INSERT INTO survey_features (client_id, created_at, lat, lng, place_name, ratings, comment, age_group, gender)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (client_id) DO NOTHING
		`, f.ID, f.Timestamp, f.Location.Lat, f.Location.Lng, f.PlaceName,
			finiteRatings(f.Ratings), f.Comment, f.AgeGroup, f.Gender)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range features {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// Delete removes a feature by server id or by the id the client generated.
// Deleting an unknown id is not an error.
func (r *FeatureRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `
		DELETE FROM survey_features WHERE id::text = $1 OR client_id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete feature %s: %w", id, err)
	}
	return nil
}

// DeleteIDs removes the rows whose server or client id is in ids and reports
// how many went. Rows not named are untouched.
func (r *FeatureRepo) DeleteIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.db.Pool.Exec(ctx, `
		DELETE FROM survey_features WHERE id::text = ANY($1) OR client_id = ANY($1)
	`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete features: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Recent returns up to limit features, newest first. limit <= 0 returns all.
func (r *FeatureRepo) Recent(ctx context.Context, limit int) ([]domain.Feature, error) {
	query := `
		SELECT id::text, created_at, lat, lng, place_name, ratings, comment, age_group, gender
		FROM survey_features
		ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += `
		LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Feature, error) {
		var f domain.Feature
		err := row.Scan(
			&f.ID, &f.Timestamp, &f.Location.Lat, &f.Location.Lng,
			&f.PlaceName, &f.Ratings, &f.Comment, &f.AgeGroup, &f.Gender,
		)
		f.Timestamp = f.Timestamp.UTC()
		return f, err
	})
}

// Ping checks the pool.
func (r *FeatureRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// finiteRatings drops values JSONB cannot hold.
func finiteRatings(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[k] = v
	}
	return out
}
