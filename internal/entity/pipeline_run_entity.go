package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"ai-counselor-be/internal/constant"

	"github.com/google/uuid"
)

type RunInput struct {
	Text         string    `json:"text"`
	Goals        []string  `json:"goals"`
	SystemPrompt string    `json:"systemPrompt"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

// PipelineRun is the durable record of one message moving through the steps.
type PipelineRun struct {
	Id             uuid.UUID
	ChatSessionId  uuid.UUID
	UserId         uuid.UUID
	Turn           int
	IdempotencyKey string
	ClientKey      *string
	Status         string
	CurrentStep    string
	Input          RunInput
	MemoryBefore   *Memory
	MemoryAfter    *Memory
	Analysis       *Analysis
	Reply          string
	Attempt        int
	Error          string
	QueuedAt       time.Time
	StartedAt      *time.Time
	EndedAt        *time.Time
	UpdatedAt      time.Time
}

func RunKey(sessionId uuid.UUID, turn int) string {
	return fmt.Sprintf("%s:%d", sessionId, turn)
}

func StepKey(sessionId uuid.UUID, turn int, step string) string {
	return fmt.Sprintf("%s:%d:%s", sessionId, turn, step)
}

func (r *PipelineRun) IsTerminal() bool {
	return r.Status == constant.RunStatusCompleted || r.Status == constant.RunStatusFailed
}

func (r *PipelineRun) StepKey(step string) string {
	return StepKey(r.ChatSessionId, r.Turn, step)
}

// PipelineStep checkpoints one executed step so a resumed run can skip it.
type PipelineStep struct {
	Id             uuid.UUID
	RunId          uuid.UUID
	Name           string
	IdempotencyKey string
	Status         string
	Attempts       int
	Output         json.RawMessage
	Error          string
	StartedAt      time.Time
	EndedAt        *time.Time
}

func (s *PipelineStep) Done() bool {
	return s.Status == constant.StepStatusSucceeded ||
		s.Status == constant.StepStatusFallback ||
		s.Status == constant.StepStatusSkipped
}
