package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapsurvey",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mapsurvey",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mapsurvey",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Survey metrics
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapsurvey",
		Subsystem: "survey",
		Name:      "submissions_total",
		Help:      "Submission attempts by outcome",
	}, []string{"outcome"})

	DeletionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapsurvey",
		Subsystem: "survey",
		Name:      "deletions_total",
		Help:      "Feature deletions by outcome",
	}, []string{"outcome"})

	FeaturesLive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapsurvey",
		Subsystem: "survey",
		Name:      "features",
		Help:      "Features currently held by the session",
	})

	PersistenceOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mapsurvey",
		Subsystem: "persistence",
		Name:      "op_duration_seconds",
		Help:      "Duration of persistence adapter operations",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"mode", "op"})

	PersistenceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapsurvey",
		Subsystem: "persistence",
		Name:      "errors_total",
		Help:      "Failed persistence adapter operations",
	}, []string{"mode", "op"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapsurvey",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	KVHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapsurvey",
		Subsystem: "kv",
		Name:      "hits_total",
		Help:      "Key/value reads that found a value",
	}, []string{"operation"})

	KVMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapsurvey",
		Subsystem: "kv",
		Name:      "misses_total",
		Help:      "Key/value reads that found nothing",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapsurvey",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapsurvey",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapsurvey",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics copies pool gauges from a pgxpool.Stat.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}

// ObservePersistence records the duration and outcome of one adapter call.
func ObservePersistence(mode, op string, start time.Time, err error) {
	PersistenceOpDuration.WithLabelValues(mode, op).Observe(time.Since(start).Seconds())
	if err != nil {
		PersistenceErrors.WithLabelValues(mode, op).Inc()
	}
}
