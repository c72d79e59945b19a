// Package events publishes moderation outcomes to the chat layer over NATS so connected
// clients of a freshly blocked user can be cut off without waiting for a profile refresh.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	SubjectUserBlocked = "moderation.user_blocked" // + .<user_id>
)

// UserBlocked is published once a block row and the profile flag are both written.
type UserBlocked struct {
	UserID    uuid.UUID  `json:"user_id"`
	ReportID  *uuid.UUID `json:"report_id,omitempty"`
	Reason    string     `json:"reason"`
	BlockedAt time.Time  `json:"blocked_at"`
}

type Publisher interface {
	PublishUserBlocked(ctx context.Context, evt UserBlocked) error
	Close()
}

// NoopPublisher is used when NATS_URL is unset.
type NoopPublisher struct{}

func (NoopPublisher) PublishUserBlocked(context.Context, UserBlocked) error { return nil }
func (NoopPublisher) Close() {}

type NATSConfig struct {
	URL           string
	Name          string
	ReconnectWait time.Duration
	MaxReconnects int // -1 for infinite
}

func DefaultNATSConfig(url string) NATSConfig {
	return NATSConfig{
		URL:           url,
		Name:          "messenger-moderation",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(config NATSConfig) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	slog.Info("nats connected", "url", nc.ConnectedUrl())
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) PublishUserBlocked(_ context.Context, evt UserBlocked) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal user_blocked: %w", err)
	}
	return p.conn.Publish(Subject(evt.UserID), data)
}

func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// Subject returns the per-user subject a chat server subscribes to.
func Subject(userID uuid.UUID) string {
	return SubjectUserBlocked + "." + userID.String()
}
