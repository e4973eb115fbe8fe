package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/mapsurvey/internal/adapters/http"
	natsadapter "github.com/samirrijal/mapsurvey/internal/adapters/nats"
	"github.com/samirrijal/mapsurvey/internal/adapters/persistence"
	"github.com/samirrijal/mapsurvey/internal/adapters/postgres"
	"github.com/samirrijal/mapsurvey/internal/adapters/valkey"
	"github.com/samirrijal/mapsurvey/internal/core/domain"
	"github.com/samirrijal/mapsurvey/internal/core/ports"
	"github.com/samirrijal/mapsurvey/internal/core/usecases"
	"github.com/samirrijal/mapsurvey/internal/pkg/config"
	"github.com/samirrijal/mapsurvey/internal/pkg/logging"
	"github.com/samirrijal/mapsurvey/internal/pkg/telemetry"
	"github.com/samirrijal/mapsurvey/internal/workflows"
)

func main() {
	cfg, err := config.Load("mapsurvey-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	deps := &http.Dependencies{Survey: cfg.Survey}

	// Persistence backend. A backend that cannot be reached leaves the
	// survey browsable with submissions disabled.
	adapter, backendErr := openAdapter(ctx, cfg, deps)
	if backendErr != nil {
		slog.Error("persistence backend unavailable", "mode", cfg.Survey.Persistence, "error", backendErr)
		adapter = persistence.Unavailable{Configured: cfg.Survey.Persistence, Cause: backendErr}
	}

	// Events go to the open maps and, when enabled, to NATS. The hub needs
	// the session, so it joins the fan-out after construction.
	events := &usecases.FanOut{}
	session := usecases.NewSession(adapter, cfg.Survey.Axes, usecases.WithEvents(events))
	if backendErr != nil {
		session.MarkUnavailable(backendErr)
	}
	loadCtx, loadCancel := context.WithTimeout(ctx, 10*time.Second)
	n, err := session.Load(loadCtx)
	loadCancel()
	if err != nil {
		slog.Warn("initial load failed", "error", err)
	} else {
		slog.Info("session loaded", "features", n, "mode", session.Mode())
	}

	submissions := usecases.NewSubmissionWorkflow(session, cfg.Survey.NoticeDuration, cfg.Survey.RequireDemographics)
	hub := http.NewHub(session, http.HubConfig{
		Center: cfg.Survey.InitialCenter,
		Zoom:   cfg.Survey.InitialZoom,
		Tick:   cfg.Survey.CrosshairTick,
		View:   submissions.View,
	})
	*events = append(*events, hub)

	// NATS
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			deps.Publisher = pub
			*events = append(*events, pub)
		}

		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats relay unavailable", "error", err)
		} else {
			defer sub.Close()
			deps.Subscriber = sub
			if err := sub.SubscribeEvents(ctx, hub.Relay); err != nil {
				slog.Warn("nats relay subscribe failed", "error", err)
			}
		}
	}

	session.Status().OnChange(func() {
		if err := events.PublishStatus(context.Background(), submissions.View()); err != nil {
			slog.Debug("publish status failed", "error", err)
		}
	})

	// Temporal
	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			slog.Warn("temporal unavailable, archiving disabled", "error", err)
		} else {
			defer tc.Close()
			deps.Archiver = workflows.NewStarter(tc, cfg.Temporal.TaskQueue, cfg.Survey.Namespace)
		}
	}

	deps.Session = session
	deps.Submissions = submissions
	deps.Hub = hub

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Map Survey API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, If-None-Match",
		ExposeHeaders:    "Content-Disposition, Link, X-Session-Cleared, X-Request-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps, http.RouteOptions{
		RateLimit: cfg.Server.RateLimit,
		SpecPath:  http.DefaultSpecPath,
	})

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "persistence", cfg.Survey.Persistence)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	if deps.DB != nil {
		deps.DB.Close()
	}
	if deps.KV != nil {
		deps.KV.Close()
	}

	slog.Info("server stopped")
}

// openAdapter connects the backend for the configured mode and records it in
// deps for the readiness probe.
func openAdapter(ctx context.Context, cfg *config.Config, deps *http.Dependencies) (ports.PersistenceAdapter, error) {
	opts := persistence.Options{
		Mode:          cfg.Survey.Persistence,
		Namespace:     cfg.Survey.Namespace,
		HydrateOnLoad: cfg.Survey.HydrateOnLoad,
		MaxRows:       cfg.Survey.MaxRows,
	}

	switch cfg.Survey.Persistence {
	case domain.PersistenceLocal:
		kv, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			return nil, fmt.Errorf("valkey: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := kv.Ping(pingCtx); err != nil {
			kv.Close()
			return nil, fmt.Errorf("valkey: %w", err)
		}
		deps.KV = kv
		opts.KV = kv
	case domain.PersistenceRemote:
		dbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		db, err := postgres.New(dbCtx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		deps.DB = db
		opts.Rows = postgres.NewFeatureRepo(db)
	}

	return persistence.New(opts)
}
