package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Subscriber follows the survey event stream from its tail.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber opens its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeEvents delivers every new event on survey.> to handler. The
// consumer is ephemeral and starts at the next published message; raw is the
// message body as published.
func (s *Subscriber) SubscribeEvents(ctx context.Context, handler func(ctx context.Context, ev Event, raw []byte) error) error {
	sub, err := s.js.Subscribe(subjectAll, func(msg *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			slog.Warn("dropping malformed survey event", "subject", msg.Subject, "error", err)
			return
		}
		if err := handler(ctx, ev, msg.Data); err != nil {
			slog.Warn("survey event handler failed", "type", ev.Type, "error", err)
		}
	},
		nats.DeliverNew(),
		nats.AckNone(),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subjectAll, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
