package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserId        uuid.UUID  `gorm:"type:uuid;not null;index"` // User ownership for data isolation
	Status        string     `gorm:"type:varchar(20);not null;index"`
	StartTime     time.Time  `gorm:"not null"`
	TurnCount     int        `gorm:"not null;default:0"`
	MessageCount  int        `gorm:"not null;default:0"`
	LastMessageAt *time.Time
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
