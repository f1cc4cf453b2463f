package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id            uuid.UUID
	UserId        uuid.UUID
	Status        string
	StartTime     time.Time
	TurnCount     int // Submitted user messages, allocates run turns
	MessageCount  int
	LastMessageAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

func (s *ChatSession) IsOwnedBy(userId uuid.UUID) bool {
	return s.UserId == userId
}
