package mapper

import (
	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/model"
)

type MemoryMapper struct{}

func NewMemoryMapper() *MemoryMapper {
	return &MemoryMapper{}
}

func (m *MemoryMapper) SessionMemoryToEntity(s *model.SessionMemory) *entity.SessionMemory {
	if s == nil {
		return nil
	}

	mem := entity.NewMemory()
	mem.UserProfile.EmotionalState = stringsFromJSON(s.EmotionalStates)
	mem.UserProfile.RiskLevel = s.RiskLevel
	mem.SessionContext.ConversationThemes = stringsFromJSON(s.ConversationThemes)

	return &entity.SessionMemory{
		ChatSessionId: s.ChatSessionId,
		UserId:        s.UserId,
		Memory:        mem,
		LastTurn:      s.LastTurn,
		UpdatedAt:     s.UpdatedAt,
	}
}

func (m *MemoryMapper) SessionMemoryToModel(s *entity.SessionMemory) *model.SessionMemory {
	if s == nil {
		return nil
	}

	mem := s.Memory.Clone()
	return &model.SessionMemory{
		ChatSessionId:      s.ChatSessionId,
		UserId:             s.UserId,
		EmotionalStates:    toJSON(mem.UserProfile.EmotionalState),
		RiskLevel:          mem.UserProfile.RiskLevel,
		ConversationThemes: toJSON(mem.SessionContext.ConversationThemes),
		LastTurn:           s.LastTurn,
		UpdatedAt:          s.UpdatedAt,
	}
}
