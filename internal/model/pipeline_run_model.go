package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PipelineRun struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChatSessionId  uuid.UUID `gorm:"type:uuid;not null;index:idx_pipeline_runs_session_turn,priority:1;uniqueIndex:idx_pipeline_runs_session_client_key,priority:1"`
	UserId         uuid.UUID `gorm:"type:uuid;not null"`
	Turn           int       `gorm:"not null;index:idx_pipeline_runs_session_turn,priority:2"`
	IdempotencyKey string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	ClientKey      *string   `gorm:"type:varchar(255);uniqueIndex:idx_pipeline_runs_session_client_key,priority:2"`
	Status         string    `gorm:"type:varchar(32);not null;index"`
	CurrentStep    string    `gorm:"type:varchar(32)"`
	Input          datatypes.JSON
	MemoryBefore   datatypes.JSON
	MemoryAfter    datatypes.JSON
	Analysis       datatypes.JSON
	Reply          string `gorm:"type:text"`
	Attempt        int    `gorm:"not null;default:0"`
	Error          string `gorm:"type:text"`
	QueuedAt       time.Time
	StartedAt      *time.Time
	EndedAt        *time.Time
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (PipelineRun) TableName() string {
	return "pipeline_runs"
}

type PipelineStep struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	RunId          uuid.UUID `gorm:"type:uuid;not null;index"`
	Name           string    `gorm:"type:varchar(32);not null"`
	IdempotencyKey string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	Status         string    `gorm:"type:varchar(16);not null"`
	Attempts       int       `gorm:"not null;default:0"`
	Output         datatypes.JSON
	Error          string `gorm:"type:text"`
	StartedAt      time.Time
	EndedAt        *time.Time
}

func (PipelineStep) TableName() string {
	return "pipeline_steps"
}
