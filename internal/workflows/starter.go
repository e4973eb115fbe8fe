package workflows

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
)

// Starter runs the archive workflow and waits for its result. It implements
// ports.Archiver.
type Starter struct {
	client    client.Client
	taskQueue string
	namespace string
}

// NewStarter creates a Starter for the given task queue. namespace is the
// survey key namespace, not the Temporal namespace.
func NewStarter(c client.Client, taskQueue, namespace string) *Starter {
	return &Starter{client: c, taskQueue: taskQueue, namespace: namespace}
}

// Archive starts one run and blocks until it completes or ctx ends.
func (s *Starter) Archive(ctx context.Context) (domain.ArchiveResult, error) {
	id := uuid.NewString()
	run, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "archive-" + id,
		TaskQueue: s.taskQueue,
	}, ArchiveWorkflow, ArchiveInput{ArchiveID: id, Namespace: s.namespace})
	if err != nil {
		return domain.ArchiveResult{}, fmt.Errorf("start archive workflow: %w", err)
	}

	var res domain.ArchiveResult
	if err := run.Get(ctx, &res); err != nil {
		return domain.ArchiveResult{}, fmt.Errorf("archive workflow %s: %w", run.GetID(), err)
	}
	return res, nil
}
