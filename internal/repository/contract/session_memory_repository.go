package contract

import (
	"context"

	"ai-counselor-be/internal/entity"

	"github.com/google/uuid"
)

type SessionMemoryRepository interface {
	FindBySessionId(ctx context.Context, sessionId uuid.UUID) (*entity.SessionMemory, error)
	Upsert(ctx context.Context, memory *entity.SessionMemory) error
}
