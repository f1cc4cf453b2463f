package entity

import (
	"time"

	"github.com/google/uuid"
)

type MoodEntry struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Score     int // 0..100
	Note      string
	CreatedAt time.Time
}

type Activity struct {
	Id              uuid.UUID
	UserId          uuid.UUID
	Type            string
	Name            string
	Description     string
	DurationMinutes int
	CreatedAt       time.Time
}
