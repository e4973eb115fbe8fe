package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/mapsurvey/internal/adapters/nats"
	"github.com/samirrijal/mapsurvey/internal/adapters/persistence"
	"github.com/samirrijal/mapsurvey/internal/adapters/postgres"
	"github.com/samirrijal/mapsurvey/internal/adapters/valkey"
	"github.com/samirrijal/mapsurvey/internal/core/domain"
	"github.com/samirrijal/mapsurvey/internal/core/ports"
	"github.com/samirrijal/mapsurvey/internal/pkg/config"
	"github.com/samirrijal/mapsurvey/internal/pkg/logging"
	"github.com/samirrijal/mapsurvey/internal/workflows"
)

func main() {
	cfg, err := config.Load("mapsurvey-archiver")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log)

	if cfg.Survey.Persistence == domain.PersistenceNone {
		log.Fatal("archiver: nothing to archive with survey.persistence=none")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Archives always live in Valkey; the collection lives wherever the
	// persistence mode says.
	kv, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer kv.Close()

	opts := persistence.Options{
		Mode:      cfg.Survey.Persistence,
		Namespace: cfg.Survey.Namespace,
		KV:        kv,
		// The whole collection is archived, not just the recent rows.
		HydrateOnLoad: true,
		MaxRows:       persistence.AllRows,
	}
	if cfg.Survey.Persistence == domain.PersistenceRemote {
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		opts.Rows = postgres.NewFeatureRepo(db)
	}
	adapter, err := persistence.New(opts)
	if err != nil {
		log.Fatalf("persistence: %v", err)
	}

	var events ports.EventPublisher
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, archives will not be announced", "error", err)
		} else {
			defer pub.Close()
			events = pub
		}
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.ArchiveWorkflow)
	w.RegisterActivity(&workflows.ArchiveActivities{
		Adapter: adapter,
		Archive: kv,
		Events:  events,
	})

	slog.Info("archive worker started", "task_queue", cfg.Temporal.TaskQueue, "persistence", cfg.Survey.Persistence)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
