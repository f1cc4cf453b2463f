package model

import (
	"time"

	"github.com/google/uuid"
)

type MoodEntry struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	Score     int       `gorm:"not null"`
	Note      string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (MoodEntry) TableName() string {
	return "mood_entries"
}

type Activity struct {
	Id              uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId          uuid.UUID `gorm:"type:uuid;not null;index"`
	Type            string    `gorm:"type:varchar(32);not null"`
	Name            string    `gorm:"type:varchar(255);not null"`
	Description     string    `gorm:"type:text"`
	DurationMinutes int       `gorm:"not null;default:0"`
	CreatedAt       time.Time `gorm:"not null;index"`
}

func (Activity) TableName() string {
	return "activities"
}
