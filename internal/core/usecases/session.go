package usecases

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
	"github.com/samirrijal/mapsurvey/internal/core/ports"
	"github.com/samirrijal/mapsurvey/internal/pkg/export"
)

// Session is the state of one survey session: the feature store, the
// persistence adapter it writes through, the status channel and the draft.
// It is built once at startup and shared by every component.
type Session struct {
	mu      sync.Mutex // one logical mutation at a time
	store   *FeatureStore
	adapter ports.PersistenceAdapter
	axes    []domain.Axis
	status  *StatusBoard
	events  ports.EventPublisher
	clock   clock.Clock
	newID   func() string

	availMu     sync.Mutex
	unavailable error

	draftMu sync.Mutex
	draft   domain.Draft
}

// SessionOption customises a Session.
type SessionOption func(*Session)

// WithEvents publishes store changes through p.
func WithEvents(p ports.EventPublisher) SessionOption {
	return func(s *Session) { s.events = p }
}

// WithClock replaces the wall clock.
func WithClock(clk clock.Clock) SessionOption {
	return func(s *Session) { s.clock = clk }
}

// WithIDGenerator replaces the random UUID generator for provisional ids.
func WithIDGenerator(fn func() string) SessionOption {
	return func(s *Session) { s.newID = fn }
}

// NewSession creates a Session over an empty store.
func NewSession(adapter ports.PersistenceAdapter, axes []domain.Axis, opts ...SessionOption) *Session {
	s := &Session{
		store:   NewFeatureStore(),
		adapter: adapter,
		axes:    axes,
		clock:   clock.WallClock,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	s.status = NewStatusBoard(s.clock)
	return s
}

// Store exposes the feature store for read access.
func (s *Session) Store() *FeatureStore { return s.store }

// Axes returns the configured rating axes.
func (s *Session) Axes() []domain.Axis { return s.axes }

// Status returns the status board.
func (s *Session) Status() *StatusBoard { return s.status }

// Mode reports the configured persistence variant.
func (s *Session) Mode() domain.PersistenceMode { return s.adapter.Mode() }

// Snapshot returns the current features.
func (s *Session) Snapshot() []domain.Feature { return s.store.List() }

// Load replaces the store with what the adapter holds.
func (s *Session) Load(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	features, err := s.adapter.Load(ctx)
	if err != nil {
		s.status.Set(domain.StatusWarn, "Saved responses could not be loaded")
		return 0, fmt.Errorf("load features: %w", err)
	}
	if dropped := s.store.ReplaceAll(features); dropped > 0 {
		slog.Warn("dropped duplicate feature ids on load", "dropped", dropped)
	}
	return s.store.Len(), nil
}

// MarkUnavailable disables submission because the configured backend could
// not be constructed.
func (s *Session) MarkUnavailable(cause error) {
	s.availMu.Lock()
	s.unavailable = cause
	s.availMu.Unlock()
	s.status.Set(domain.StatusError, "Storage unavailable, submissions are disabled")
}

// Available returns ErrPersistenceUnavailable when submission is disabled.
func (s *Session) Available() error {
	s.availMu.Lock()
	defer s.availMu.Unlock()
	if s.unavailable != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, s.unavailable)
	}
	return nil
}

// commit writes f through the adapter and, only on success, adds it to the
// store. A server-assigned id replaces the provisional one.
func (s *Session) commit(ctx context.Context, f domain.Feature) (domain.Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.store.with(f)
	if err != nil {
		return domain.Feature{}, err
	}

	serverID, err := s.adapter.Insert(ctx, f, next)
	if err != nil {
		return domain.Feature{}, asWriteFailure("insert", err)
	}
	if serverID != "" && serverID != f.ID {
		slog.Debug("reconciled feature id", "provisional", f.ID, "server", serverID)
		f.ID = serverID
	}
	if err := s.store.Add(f); err != nil {
		return domain.Feature{}, err
	}

	s.publish(func(p ports.EventPublisher) error { return p.PublishFeatureAdded(ctx, &f) })
	return f, nil
}

// Delete removes a feature durably first; the store is only touched when the
// adapter succeeded.
func (s *Session) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.store.without(id)
	if err != nil {
		return err
	}
	if err := s.adapter.Delete(ctx, id, next); err != nil {
		s.status.Notify(domain.NoticeError, "Could not delete response", noticeFallback)
		return asWriteFailure("delete", err)
	}
	if err := s.store.Remove(id); err != nil {
		return err
	}

	s.publish(func(p ports.EventPublisher) error { return p.PublishFeatureRemoved(ctx, id) })
	return nil
}

// Finish exports the session as CSV and then clears it. When the clear fails
// the store keeps its features and the export is still returned.
func (s *Session) Finish(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.store.List()
	var buf bytes.Buffer
	if err := export.CSV(&buf, snapshot, s.axes); err != nil {
		return nil, fmt.Errorf("export csv: %w", err)
	}
	if err := s.adapter.Clear(ctx, snapshot); err != nil {
		return buf.Bytes(), asWriteFailure("clear", err)
	}
	s.store.Clear()

	s.publish(func(p ports.EventPublisher) error { return p.PublishCleared(ctx) })
	return buf.Bytes(), nil
}

// Draft returns a copy of the pending form input.
func (s *Session) Draft() domain.Draft {
	s.draftMu.Lock()
	defer s.draftMu.Unlock()
	return copyDraft(s.draft)
}

// UpdateDraft replaces the pending form input, keeping the crosshair location
// when d carries none.
func (s *Session) UpdateDraft(d domain.Draft) domain.Draft {
	s.draftMu.Lock()
	defer s.draftMu.Unlock()
	if d.Location == nil {
		d.Location = s.draft.Location
	}
	s.draft = copyDraft(d)
	return copyDraft(s.draft)
}

// SetCrosshair records the live map centre as the implicit location of the
// next submission.
func (s *Session) SetCrosshair(p domain.GeoPoint) {
	s.draftMu.Lock()
	s.draft.Location = &p
	s.draftMu.Unlock()
}

// clearTransient empties the per-response text fields after a submission.
func (s *Session) clearTransient() {
	s.draftMu.Lock()
	s.draft.PlaceName = ""
	s.draft.Comment = ""
	s.draftMu.Unlock()
}

// ReportGeolocation records the outcome of a one-shot geolocation query.
func (s *Session) ReportGeolocation(ok bool, cause string) error {
	if ok {
		s.status.Set(domain.StatusOK, "Location acquired")
		return nil
	}
	if cause == "" {
		cause = "not supported"
	}
	s.status.Set(domain.StatusWarn, "Location unavailable: "+cause)
	return fmt.Errorf("%w: %s", domain.ErrGeolocation, cause)
}

// View assembles what the status endpoint shows.
func (s *Session) View(state domain.SubmissionState) domain.StatusView {
	return domain.StatusView{
		Status:     s.status.Status(),
		Notice:     s.status.Notice(),
		Submission: state,
	}
}

func (s *Session) publish(fn func(ports.EventPublisher) error) {
	if s.events == nil {
		return
	}
	if err := fn(s.events); err != nil {
		slog.Warn("publish session event failed", "error", err)
	}
}

func asWriteFailure(op string, err error) error {
	var wf *domain.WriteFailure
	if errors.As(err, &wf) || errors.Is(err, domain.ErrPersistenceUnavailable) {
		return err
	}
	return &domain.WriteFailure{Op: op, Cause: err}
}

func copyDraft(d domain.Draft) domain.Draft {
	out := d
	if d.Location != nil {
		loc := *d.Location
		out.Location = &loc
	}
	if d.Ratings != nil {
		out.Ratings = make(map[string]float64, len(d.Ratings))
		for k, v := range d.Ratings {
			out.Ratings[k] = v
		}
	}
	return out
}
