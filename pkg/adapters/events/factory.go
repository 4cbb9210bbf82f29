package events

import (
	"context"

	"github.com/opsforge/coordd/pkg/domain"
	"github.com/opsforge/coordd/pkg/ports"
	"go.uber.org/zap"
)

// NewMirroredBus wraps a local bus so every published event is also
// mirrored to a secondary bus (Redis Streams). Subscriptions stay local;
// mirror failures are logged, never surfaced, so the coordination path is
// independent of Redis availability.
func NewMirroredBus(local, mirror ports.EventBus, logger *zap.Logger) ports.EventBus {
	return &mirroredBus{local: local, mirror: mirror, logger: logger}
}

type mirroredBus struct {
	local  ports.EventBus
	mirror ports.EventBus
	logger *zap.Logger
}

func (b *mirroredBus) Publish(ctx context.Context, topic string, event domain.Event) error {
	if err := b.mirror.Publish(ctx, topic, event); err != nil {
		b.logger.Warn("failed to mirror event",
			zap.String("topic", topic),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
	return b.local.Publish(ctx, topic, event)
}

func (b *mirroredBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	return b.local.Subscribe(ctx, topic, handler)
}

func (b *mirroredBus) Close() error {
	_ = b.mirror.Close()
	return b.local.Close()
}
