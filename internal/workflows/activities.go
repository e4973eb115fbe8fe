package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/mapsurvey/internal/core/ports"
	"github.com/samirrijal/mapsurvey/internal/pkg/export"
)

// ArchiveActivities holds the activity implementations for the archive
// workflow. Adapter should load the full durable collection, so a remote
// adapter used here is built with hydration on and persistence.AllRows.
type ArchiveActivities struct {
	Adapter ports.PersistenceAdapter
	Archive ports.KeyValueStore
	Events  ports.EventPublisher
}

// SnapshotFeatures reads the durable collection as GeoJSON.
func (a *ArchiveActivities) SnapshotFeatures(ctx context.Context) (Snapshot, error) {
	features, err := a.Adapter.Load(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load features: %w", err)
	}
	data, err := export.GeoJSON(features)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode features: %w", err)
	}
	return Snapshot{GeoJSON: data, Count: len(features)}, nil
}

// StoreArchive writes the archive copy.
func (a *ArchiveActivities) StoreArchive(ctx context.Context, key string, data []byte) error {
	if err := a.Archive.Set(ctx, key, data); err != nil {
		return fmt.Errorf("store archive %s: %w", key, err)
	}
	return nil
}

// DeleteArchive removes an archive copy (saga compensation).
func (a *ArchiveActivities) DeleteArchive(ctx context.Context, key string) error {
	if err := a.Archive.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete archive %s: %w", key, err)
	}
	slog.Info("archive deleted (saga compensation)", "key", key)
	return nil
}

// PurgeFeatures removes exactly the features captured in the snapshot.
// Anything written after the snapshot, or left out of it, stays.
func (a *ArchiveActivities) PurgeFeatures(ctx context.Context, data []byte) error {
	features, err := export.DecodeGeoJSON(data)
	if err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if err := a.Adapter.Clear(ctx, features); err != nil {
		return fmt.Errorf("purge features: %w", err)
	}
	return nil
}

// RestoreFeatures writes a snapshot back (saga compensation).
func (a *ArchiveActivities) RestoreFeatures(ctx context.Context, data []byte) error {
	features, err := export.DecodeGeoJSON(data)
	if err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if err := a.Adapter.Restore(ctx, features); err != nil {
		return fmt.Errorf("restore features: %w", err)
	}
	slog.Info("features restored (saga compensation)", "count", len(features))
	return nil
}

// PublishArchived announces the archive on the event stream.
func (a *ArchiveActivities) PublishArchived(ctx context.Context, archiveID string, count int) error {
	if a.Events == nil {
		slog.Info("archive completed (no publisher)", "archive_id", archiveID, "count", count)
		return nil
	}
	return a.Events.PublishArchived(ctx, archiveID, count)
}
