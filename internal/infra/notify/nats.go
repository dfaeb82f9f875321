package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/yanqian/rockwatch/internal/domain/evaluation"
)

// NATSConfig holds the publish connection settings.
type NATSConfig struct {
	URL            string
	Subject        string
	Name           string
	ReconnectWait  time.Duration
	MaxReconnects  int
	ConnectTimeout time.Duration
}

// AlertEvent is the message published for each alert.
type AlertEvent struct {
	ID       string              `json:"id"`
	Type     string              `json:"type"`
	Content  string              `json:"content"`
	Delivery evaluation.Delivery `json:"delivery"`
}

// NATSChannel publishes alerts for downstream paging systems.
type NATSChannel struct {
	conn    *nats.Conn
	subject string
}

// NewNATSChannel connects to the NATS server.
func NewNATSChannel(cfg NATSConfig) (*NATSChannel, error) {
	if cfg.Name == "" {
		cfg.Name = "rockwatch"
	}
	if cfg.Subject == "" {
		cfg.Subject = "rockwatch.alerts"
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSChannel{conn: conn, subject: cfg.Subject}, nil
}

// Send publishes the alert under <subject>.<level>.
func (n *NATSChannel) Send(_ context.Context, delivery evaluation.Delivery, content string) error {
	payload, err := json.Marshal(AlertEvent{
		ID:       uuid.NewString(),
		Type:     "rockfall.alert",
		Content:  content,
		Delivery: delivery,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	return n.conn.Publish(n.subject+"."+string(delivery.Level), payload)
}

// Close flushes pending messages and closes the connection.
func (n *NATSChannel) Close() {
	if n == nil || n.conn == nil {
		return
	}
	_ = n.conn.Drain()
}

var _ Channel = (*NATSChannel)(nil)
