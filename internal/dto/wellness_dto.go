package dto

import (
	"time"

	"github.com/google/uuid"
)

type LogMoodRequest struct {
	Score int    `json:"score" validate:"min=0,max=100"`
	Note  string `json:"note" validate:"max=1000"`
}

type MoodEntryResponse struct {
	Id        uuid.UUID `json:"id"`
	Score     int       `json:"score"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type LogActivityRequest struct {
	Type            string `json:"type" validate:"required,oneof=breathing meditation journaling exercise game therapy mood other"`
	Name            string `json:"name" validate:"required,max=200"`
	Description     string `json:"description" validate:"max=1000"`
	DurationMinutes int    `json:"durationMinutes" validate:"min=0,max=1440"`
}

type ActivityResponse struct {
	Id              uuid.UUID `json:"id"`
	Type            string    `json:"type"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	DurationMinutes int       `json:"durationMinutes"`
	CreatedAt       time.Time `json:"createdAt"`
}

type TodaySummaryResponse struct {
	Activities   []*ActivityResponse `json:"activities"`
	MoodCount    int                 `json:"moodCount"`
	AverageMood  *float64            `json:"averageMood"`
	TotalMinutes int                 `json:"totalMinutes"`
}
