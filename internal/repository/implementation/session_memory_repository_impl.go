package implementation

import (
	"context"
	"errors"

	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/mapper"
	"ai-counselor-be/internal/model"
	"ai-counselor-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionMemoryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.MemoryMapper
}

func NewSessionMemoryRepository(db *gorm.DB) contract.SessionMemoryRepository {
	return &SessionMemoryRepositoryImpl{
		db:     db,
		mapper: mapper.NewMemoryMapper(),
	}
}

func (r *SessionMemoryRepositoryImpl) FindBySessionId(ctx context.Context, sessionId uuid.UUID) (*entity.SessionMemory, error) {
	var m model.SessionMemory
	if err := r.db.WithContext(ctx).Where("chat_session_id = ?", sessionId).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SessionMemoryToEntity(&m), nil
}

func (r *SessionMemoryRepositoryImpl) Upsert(ctx context.Context, memory *entity.SessionMemory) error {
	m := r.mapper.SessionMemoryToModel(memory)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "chat_session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"emotional_states",
				"risk_level",
				"conversation_themes",
				"last_turn",
				"updated_at",
			}),
		}).
		Create(m).Error
}
