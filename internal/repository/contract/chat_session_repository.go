package contract

import (
	"context"
	"time"

	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// NextTurn atomically increments turn_count and returns the new value.
	NextTurn(ctx context.Context, id uuid.UUID) (int, error)
	// RecordMessages bumps message_count and moves last_message_at forward.
	RecordMessages(ctx context.Context, id uuid.UUID, added int, at time.Time) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}
