// Package persistence holds the three persistence variants a session can be
// configured with. The variant is chosen once at startup.
package persistence

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
	"github.com/samirrijal/mapsurvey/internal/core/ports"
	"github.com/samirrijal/mapsurvey/internal/pkg/metrics"
	"github.com/samirrijal/mapsurvey/internal/pkg/telemetry"
)

// DefaultMaxRows caps a remote hydrate.
const DefaultMaxRows = 500

// AllRows as MaxRows loads the whole remote table.
const AllRows = -1

// Options configures New.
type Options struct {
	Mode      domain.PersistenceMode
	Namespace string

	// KV backs the local variant.
	KV ports.KeyValueStore

	// Rows backs the remote variant.
	Rows          ports.FeatureRows
	HydrateOnLoad bool
	MaxRows       int
}

// New builds the adapter for opts.Mode. A variant whose backend is missing
// fails with domain.ErrPersistenceUnavailable.
func New(opts Options) (ports.PersistenceAdapter, error) {
	switch opts.Mode {
	case domain.PersistenceNone, "":
		return None{}, nil
	case domain.PersistenceLocal:
		if opts.KV == nil {
			return nil, fmt.Errorf("%w: local mode needs a key/value store", domain.ErrPersistenceUnavailable)
		}
		return NewLocal(opts.KV, opts.Namespace), nil
	case domain.PersistenceRemote:
		if opts.Rows == nil {
			return nil, fmt.Errorf("%w: remote mode needs a database", domain.ErrPersistenceUnavailable)
		}
		return NewRemote(opts.Rows, opts.HydrateOnLoad, opts.MaxRows), nil
	default:
		return nil, fmt.Errorf("unknown persistence mode %q", opts.Mode)
	}
}

// observe wraps one backend call in a span and records its duration.
func observe(ctx context.Context, mode domain.PersistenceMode, op string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := telemetry.Tracer().Start(ctx, "persistence."+op,
		trace.WithAttributes(telemetry.AttrPersistenceMode.String(string(mode))),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics.ObservePersistence(string(mode), op, start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func featureIDs(features []domain.Feature) []string {
	ids := make([]string, len(features))
	for i, f := range features {
		ids[i] = f.ID
	}
	return ids
}

// without returns features minus those whose id appears in drop.
func without(features, drop []domain.Feature) []domain.Feature {
	gone := make(map[string]struct{}, len(drop))
	for _, f := range drop {
		gone[f.ID] = struct{}{}
	}
	rest := make([]domain.Feature, 0, len(features))
	for _, f := range features {
		if _, ok := gone[f.ID]; !ok {
			rest = append(rest, f)
		}
	}
	return rest
}
