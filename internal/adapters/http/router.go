package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/mapsurvey/internal/pkg/metrics"
)

const (
	requestTimeout = 15 * time.Second
	// archiveTimeout covers a full workflow round trip.
	archiveTimeout = 2 * time.Minute
)

// RouteOptions tunes the router.
type RouteOptions struct {
	// RateLimit is requests per minute per IP; zero disables limiting.
	RateLimit int
	// SpecPath is the OpenAPI document served under /docs.
	SpecPath string
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies, opts RouteOptions) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/ws"
		},
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	if opts.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        opts.RateLimit,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
			},
		}))
	}

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/config", ConfigHandler(deps))
	v1.Get("/features", ListFeaturesHandler(deps))
	v1.Get("/features/:id", GetFeatureHandler(deps))
	v1.Post("/features", timeout.NewWithContext(SubmitFeatureHandler(deps), requestTimeout))
	v1.Delete("/features/:id", timeout.NewWithContext(DeleteFeatureHandler(deps), requestTimeout))
	v1.Get("/markers", MarkersHandler(deps))
	v1.Get("/stats", StatsHandler(deps))
	v1.Get("/status", StatusHandler(deps))
	v1.Get("/draft", GetDraftHandler(deps))
	v1.Put("/draft", PutDraftHandler(deps))
	v1.Post("/geolocation", GeolocationHandler(deps))
	v1.Get("/export/geojson", ExportGeoJSONHandler(deps))
	v1.Get("/export/csv", ExportCSVHandler(deps))
	v1.Post("/session/finish", timeout.NewWithContext(FinishSessionHandler(deps), requestTimeout))
	v1.Post("/session/archive", timeout.NewWithContext(ArchiveSessionHandler(deps), archiveTimeout))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app, opts.SpecPath)

	if deps.Hub != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(deps.Hub.Handler()))
	}
}
