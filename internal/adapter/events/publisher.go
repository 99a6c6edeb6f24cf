// Package events publishes message events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
)

// SubjectMessageCreated carries every message written to the log.
const SubjectMessageCreated = "marketplace.message.created"

// Publisher sends message events to NATS. A nil connection makes it a no-op.
type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewPublisher connects to url. An empty url yields a publisher that drops events.
func NewPublisher(url, token string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if url == "" {
		return &Publisher{logger: logger}, nil
	}

	opts := []nats.Option{
		nats.Name("marketplace"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Publisher{conn: nc, logger: logger}, nil
}

// Enabled reports whether events leave the process.
func (p *Publisher) Enabled() bool {
	return p != nil && p.conn != nil
}

// PublishMessage publishes a message event; failures are logged only.
func (p *Publisher) PublishMessage(_ context.Context, event domain.MessageEvent) {
	if !p.Enabled() {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("marshal message event", "error", err)
		return
	}
	if err := p.conn.Publish(SubjectMessageCreated, payload); err != nil {
		p.logger.Warn("publish message event", "error", err,
			"conversation_id", event.Message.ConversationID, "message_id", event.Message.ID)
	}
}

// Subscribe delivers decoded message events to handler.
func (p *Publisher) Subscribe(handler func(domain.MessageEvent)) (*nats.Subscription, error) {
	if !p.Enabled() {
		return nil, fmt.Errorf("nats not configured")
	}
	sub, err := p.conn.Subscribe(SubjectMessageCreated, func(msg *nats.Msg) {
		var event domain.MessageEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			p.logger.Warn("decode message event", "error", err)
			return
		}
		handler(event)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", SubjectMessageCreated, err)
	}
	return sub, nil
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p.Enabled() {
		p.conn.Close()
	}
}
