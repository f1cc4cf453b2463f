package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SessionMemory struct {
	ChatSessionId      uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId             uuid.UUID `gorm:"type:uuid;not null;index"`
	EmotionalStates    datatypes.JSON
	RiskLevel          int `gorm:"not null;default:0"`
	ConversationThemes datatypes.JSON
	LastTurn           int       `gorm:"not null;default:0"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

func (SessionMemory) TableName() string {
	return "session_memories"
}
