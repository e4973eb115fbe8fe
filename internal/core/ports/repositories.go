package ports

import (
	"context"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
)

// PersistenceAdapter translates feature store mutations into durable writes.
// next is the collection as it will look once the mutation is applied; adapters
// that persist whole snapshots write it, row-oriented adapters ignore it.
type PersistenceAdapter interface {
	Mode() domain.PersistenceMode
	// Insert stores f and returns the server-assigned id, or "" to keep f.ID.
	Insert(ctx context.Context, f domain.Feature, next []domain.Feature) (string, error)
	Delete(ctx context.Context, id string, next []domain.Feature) error
	// Clear removes cleared, the collection being emptied. Anything the
	// backend holds that is not in cleared stays.
	Clear(ctx context.Context, cleared []domain.Feature) error
	// Load returns the authoritative collection. It never fails on bad data.
	Load(ctx context.Context) ([]domain.Feature, error)
	// Restore writes features back after an aborted archive.
	Restore(ctx context.Context, features []domain.Feature) error
}

// FeatureRows is the row-oriented remote backend.
type FeatureRows interface {
	Insert(ctx context.Context, f *domain.Feature) (string, error)
	InsertBatch(ctx context.Context, features []domain.Feature) error
	Delete(ctx context.Context, id string) error
	// DeleteIDs removes the rows matching ids, by server or client id.
	DeleteIDs(ctx context.Context, ids []string) (int64, error)
	// Recent returns at most limit rows ordered by timestamp descending;
	// limit <= 0 returns every row.
	Recent(ctx context.Context, limit int) ([]domain.Feature, error)
	Ping(ctx context.Context) error
}

// KeyValueStore holds serialized blobs under fixed keys.
// Get returns domain.ErrNotFound for a missing key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
