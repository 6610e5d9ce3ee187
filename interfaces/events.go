package interfaces

import (
	"context"

	"github.com/customeros/mailsync/internal/enum"
)

type EventPublisher interface {
	PublishEvent(ctx context.Context, entityId string, entityType enum.EntityType, eventType string, data interface{}) error
	Close() error
}
