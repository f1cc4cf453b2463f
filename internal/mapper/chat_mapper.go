package mapper

import (
	"time"

	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/model"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatSession{
		Id:            s.Id,
		UserId:        s.UserId,
		Status:        s.Status,
		StartTime:     s.StartTime,
		TurnCount:     s.TurnCount,
		MessageCount:  s.MessageCount,
		LastMessageAt: s.LastMessageAt,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ChatSession{
		Id:            s.Id,
		UserId:        s.UserId,
		Status:        s.Status,
		StartTime:     s.StartTime,
		TurnCount:     s.TurnCount,
		MessageCount:  s.MessageCount,
		LastMessageAt: s.LastMessageAt,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}

// Message Mappers

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}

	return &entity.ChatMessage{
		Id:             msg.Id,
		ChatSessionId:  msg.ChatSessionId,
		Turn:           msg.Turn,
		Sequence:       msg.Sequence,
		Role:           msg.Role,
		Content:        msg.Content,
		Timestamp:      msg.Timestamp,
		IdempotencyKey: msg.IdempotencyKey,
		Metadata:       fromJSON[entity.MessageMetadata](msg.Metadata),
	}
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}

	res := &model.ChatMessage{
		Id:             msg.Id,
		ChatSessionId:  msg.ChatSessionId,
		Turn:           msg.Turn,
		Sequence:       msg.Sequence,
		Role:           msg.Role,
		Content:        msg.Content,
		Timestamp:      msg.Timestamp,
		IdempotencyKey: msg.IdempotencyKey,
	}
	if msg.Metadata != nil {
		res.Metadata = toJSON(msg.Metadata)
	}
	return res
}

func (m *ChatMapper) ChatMessagesToEntities(msgs []*model.ChatMessage) []*entity.ChatMessage {
	res := make([]*entity.ChatMessage, 0, len(msgs))
	for _, msg := range msgs {
		res = append(res, m.ChatMessageToEntity(msg))
	}
	return res
}
