package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stratumhq/sitepay-api/internal/models"
)

// EventPublisher delivers domain events to the external notification
// subsystem. The engine never renders or sends messages itself.
type EventPublisher interface {
	Publish(ctx context.Context, event models.DomainEvent) error
}

// NopEventPublisher discards events; used in tests and when notifications
// are disabled.
type NopEventPublisher struct{}

// Publish implements EventPublisher.
func (NopEventPublisher) Publish(context.Context, models.DomainEvent) error { return nil }

type eventChannelPublisher interface {
	Publish(ctx context.Context, channel string, payload interface{}) error
}

// RedisEventPublisher publishes events as JSON on per-type Redis channels
// (e.g. "sitepay.events.payroll.approved").
type RedisEventPublisher struct {
	channels      eventChannelPublisher
	channelPrefix string
	logger        *zap.Logger
}

// NewRedisEventPublisher constructs the publisher.
func NewRedisEventPublisher(channels eventChannelPublisher, channelPrefix string, logger *zap.Logger) *RedisEventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if channelPrefix == "" {
		channelPrefix = "sitepay.events"
	}
	return &RedisEventPublisher{channels: channels, channelPrefix: channelPrefix, logger: logger}
}

// Publish implements EventPublisher.
func (p *RedisEventPublisher) Publish(ctx context.Context, event models.DomainEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	channel := fmt.Sprintf("%s.%s", p.channelPrefix, event.Type)
	if err := p.channels.Publish(ctx, channel, event); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}
