package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
	"github.com/samirrijal/mapsurvey/internal/pkg/export"
)

// Subjects published by this service.
const (
	SubjectFeatureAdded   = "survey.features.added"
	SubjectFeatureRemoved = "survey.features.removed"
	SubjectCleared        = "survey.features.cleared"
	SubjectStatus         = "survey.status"
	SubjectArchived       = "survey.archive.completed"

	subjectAll = "survey.>"
	streamName = "SURVEY_EVENTS"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	now  func() time.Time
}

// NewPublisher connects to NATS and ensures the event stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subjectAll},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist; try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js, now: time.Now}, nil
}

func (p *Publisher) PublishFeatureAdded(ctx context.Context, f *domain.Feature) error {
	ev := Event{Type: EventFeatureAdded, ID: f.ID, Feature: export.Feature(*f)}
	return p.publish(ctx, SubjectFeatureAdded, ev)
}

func (p *Publisher) PublishFeatureRemoved(ctx context.Context, id string) error {
	return p.publish(ctx, SubjectFeatureRemoved, Event{Type: EventFeatureRemoved, ID: id})
}

func (p *Publisher) PublishCleared(ctx context.Context) error {
	return p.publish(ctx, SubjectCleared, Event{Type: EventCleared})
}

func (p *Publisher) PublishStatus(ctx context.Context, view domain.StatusView) error {
	return p.publish(ctx, SubjectStatus, Event{Type: EventStatus, Status: &view})
}

func (p *Publisher) PublishArchived(ctx context.Context, archiveID string, count int) error {
	return p.publish(ctx, SubjectArchived, Event{Type: EventArchived, ArchiveID: archiveID, Count: count})
}

func (p *Publisher) publish(ctx context.Context, subject string, ev Event) error {
	ev.At = p.now().UTC()
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Type, err)
	}
	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Connected reports whether the underlying connection is up.
func (p *Publisher) Connected() bool {
	return p.conn.IsConnected()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

func connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}
