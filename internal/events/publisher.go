// Package events fans annonce activity out to NATS and other sinks.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"masterannonce/internal/models"
)

// Publisher publishes activity events to NATS subjects named
// "<prefix>.<event>", for example "annonces.published".
type Publisher struct {
	conn   *nats.Conn
	prefix string
}

// NewPublisher connects to the NATS server at url.
func NewPublisher(url, prefix string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("masterannonce"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	slog.Info("nats connected", "url", conn.ConnectedUrl())
	return &Publisher{conn: conn, prefix: prefix}, nil
}

// Subject returns the subject an activity type is published on.
func (p *Publisher) Subject(t models.ActivityType) string {
	return p.prefix + "." + strings.TrimPrefix(string(t), "annonce.")
}

// Publish marshals data as JSON and publishes it on subject.
func (p *Publisher) Publish(_ context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Notify publishes an activity. Failures are logged; the state change
// that produced the event has already been committed.
func (p *Publisher) Notify(ctx context.Context, a models.Activity) {
	if err := p.Publish(ctx, p.Subject(a.Type), a); err != nil {
		slog.Warn("activity publish failed", "type", a.Type, "annonce_id", a.AnnonceID, "error", err)
	}
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
