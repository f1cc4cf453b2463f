package dto

import (
	"time"

	"ai-counselor-be/internal/entity"

	"github.com/google/uuid"
)

type CreateSessionResponse struct {
	SessionId uuid.UUID `json:"sessionId"`
}

type SubmitMessageRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

type SubmitMessageResponse struct {
	RunId    uuid.UUID               `json:"runId"`
	Turn     int                     `json:"turn"`
	Response string                  `json:"response"`
	Analysis entity.Analysis         `json:"analysis"`
	Metadata *entity.MessageMetadata `json:"metadata"`
}

type MessageResponse struct {
	Id        uuid.UUID               `json:"id"`
	Turn      int                     `json:"turn"`
	Role      string                  `json:"role"`
	Content   string                  `json:"content"`
	Timestamp time.Time               `json:"timestamp"`
	Metadata  *entity.MessageMetadata `json:"metadata,omitempty"`
}

type SessionSummaryResponse struct {
	SessionId     uuid.UUID  `json:"sessionId"`
	Status        string     `json:"status"`
	StartTime     time.Time  `json:"startTime"`
	MessageCount  int        `json:"messageCount"`
	LastMessageAt *time.Time `json:"lastMessageAt"`
}

type MemoryResponse struct {
	SessionId uuid.UUID     `json:"sessionId"`
	Memory    entity.Memory `json:"memory"`
}

type StepResponse struct {
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	Attempts  int        `json:"attempts"`
	Error     string     `json:"error,omitempty"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt"`
}

type RunResponse struct {
	RunId       uuid.UUID        `json:"runId"`
	SessionId   uuid.UUID        `json:"sessionId"`
	Turn        int              `json:"turn"`
	Status      string           `json:"status"`
	CurrentStep string           `json:"currentStep,omitempty"`
	Attempt     int              `json:"attempt"`
	Error       string           `json:"error,omitempty"`
	Reply       string           `json:"reply,omitempty"`
	Analysis    *entity.Analysis `json:"analysis,omitempty"`
	QueuedAt    time.Time        `json:"queuedAt"`
	StartedAt   *time.Time       `json:"startedAt"`
	EndedAt     *time.Time       `json:"endedAt"`
	Steps       []*StepResponse  `json:"steps"`
}

// RunStatusEvent is pushed to the owner's websocket clients on every run transition.
type RunStatusEvent struct {
	RunId     uuid.UUID `json:"run_id"`
	SessionId uuid.UUID `json:"session_id"`
	Turn      int       `json:"turn"`
	Status    string    `json:"status"`
	Step      string    `json:"step,omitempty"`
}
