package pipeline

import (
	"context"
	"errors"
	"time"

	"ai-counselor-be/internal/entity"

	"github.com/google/uuid"
)

var (
	ErrRunFailed   = errors.New("pipeline run failed")
	ErrRunNotFound = errors.New("pipeline run not found")
)

type HistoryItem struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageSubmitted announces a queued run. The snapshots describe the session at submit time,
// execution re-reads both under the session lock.
type MessageSubmitted struct {
	RunId           uuid.UUID     `json:"runId"`
	SessionId       uuid.UUID     `json:"sessionId"`
	UserId          uuid.UUID     `json:"userId"`
	Turn            int           `json:"turn"`
	Text            string        `json:"text"`
	HistorySnapshot []HistoryItem `json:"historySnapshot"`
	MemorySnapshot  entity.Memory `json:"memorySnapshot"`
	Goals           []string      `json:"goals"`
	SystemPrompt    string        `json:"systemPrompt"`
	SubmittedAt     time.Time     `json:"submittedAt"`
}

// Dispatcher hands a submitted message to whatever wakes the session lane.
type Dispatcher interface {
	Dispatch(ctx context.Context, event MessageSubmitted) error
}

// RunObserver is told about every persisted state transition.
type RunObserver interface {
	RunChanged(run *entity.PipelineRun)
}

type MemoryCache interface {
	Put(sessionId uuid.UUID, m entity.Memory)
}

type SubmitRequest struct {
	SessionId uuid.UUID
	UserId    uuid.UUID
	Text      string
	ClientKey string // Optional, replays the same turn when resubmitted
}

// Result is what a completed run reports back to the caller.
type Result struct {
	RunId    uuid.UUID
	Turn     int
	Status   string
	Reply    string
	Analysis entity.Analysis
	Metadata *entity.MessageMetadata
}

// Metadata is attached to the assistant message of a run.
func Metadata(run *entity.PipelineRun) *entity.MessageMetadata {
	analysis := entity.DefaultAnalysis()
	if run.Analysis != nil {
		analysis = *run.Analysis
	}

	var goal string
	if len(run.Input.Goals) > 0 {
		goal = run.Input.Goals[0]
	}

	return &entity.MessageMetadata{
		Analysis:  &analysis,
		Progress:  analysis.Progress(),
		Technique: analysis.RecommendedApproach,
		Goal:      goal,
	}
}

func resultOf(run *entity.PipelineRun) Result {
	meta := Metadata(run)
	return Result{
		RunId:    run.Id,
		Turn:     run.Turn,
		Status:   run.Status,
		Reply:    run.Reply,
		Analysis: *meta.Analysis,
		Metadata: meta,
	}
}
