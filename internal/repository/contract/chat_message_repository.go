package contract

import (
	"context"

	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatMessageRepository interface {
	// CreateIfAbsent inserts unless a message with the same idempotency key exists.
	CreateIfAbsent(ctx context.Context, message *entity.ChatMessage) (bool, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
	FindRecent(ctx context.Context, sessionId uuid.UUID, limit int) ([]*entity.ChatMessage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
