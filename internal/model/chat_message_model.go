package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChatMessage struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey"`
	ChatSessionId  uuid.UUID      `gorm:"type:uuid;not null;index:idx_chat_messages_session_seq,priority:1"`
	Sequence       int            `gorm:"not null;index:idx_chat_messages_session_seq,priority:2"`
	Turn           int            `gorm:"not null"`
	Role           string         `gorm:"type:varchar(20);not null"`
	Content        string         `gorm:"type:text;not null"`
	Timestamp      time.Time      `gorm:"not null"`
	IdempotencyKey string         `gorm:"type:varchar(255);not null;uniqueIndex"`
	Metadata       datatypes.JSON // Assistant messages only
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
