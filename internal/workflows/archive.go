package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
)

// ArchiveInput is the input for the archive workflow.
type ArchiveInput struct {
	ArchiveID string
	Namespace string
}

// Snapshot is the collection as captured at the start of a run.
type Snapshot struct {
	GeoJSON []byte
	Count   int
}

// ArchiveKey is where an archive is stored, e.g. mapsurvey:archive:2026-10-15:<id>.
func ArchiveKey(namespace string, day time.Time, archiveID string) string {
	return fmt.Sprintf("%s:archive:%s:%s", namespace, day.UTC().Format("2006-01-02"), archiveID)
}

// ArchiveWorkflow copies the durable collection into a dated archive, then
// removes the archived features and announces the archive. When a later step fails the earlier
// ones are undone in reverse order: the features are written back and the
// archive copy is deleted.
func ArchiveWorkflow(ctx workflow.Context, input ArchiveInput) (domain.ArchiveResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting archive workflow", "archiveID", input.ArchiveID)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	result := domain.ArchiveResult{ArchiveID: input.ArchiveID}

	var snap Snapshot
	if err := workflow.ExecuteActivity(ctx, "SnapshotFeatures").Get(ctx, &snap); err != nil {
		return result, err
	}
	if snap.Count == 0 {
		logger.Info("Nothing to archive")
		return result, nil
	}

	key := ArchiveKey(input.Namespace, workflow.Now(ctx), input.ArchiveID)
	if err := workflow.ExecuteActivity(ctx, "StoreArchive", key, snap.GeoJSON).Get(ctx, nil); err != nil {
		return result, err
	}

	if err := workflow.ExecuteActivity(ctx, "PurgeFeatures", snap.GeoJSON).Get(ctx, nil); err != nil {
		logger.Warn("purge failed, compensating", "error", err)
		_ = workflow.ExecuteActivity(ctx, "DeleteArchive", key).Get(ctx, nil)
		return result, err
	}

	if err := workflow.ExecuteActivity(ctx, "PublishArchived", input.ArchiveID, snap.Count).Get(ctx, nil); err != nil {
		logger.Warn("announce failed, compensating", "error", err)
		_ = workflow.ExecuteActivity(ctx, "RestoreFeatures", snap.GeoJSON).Get(ctx, nil)
		_ = workflow.ExecuteActivity(ctx, "DeleteArchive", key).Get(ctx, nil)
		return result, err
	}

	result.Key = key
	result.Count = snap.Count
	logger.Info("Archive completed", "key", key, "count", snap.Count)
	return result, nil
}
