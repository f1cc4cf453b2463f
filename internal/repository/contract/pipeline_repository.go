package contract

import (
	"context"

	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/repository/specification"

	"github.com/google/uuid"
)

type PipelineRunRepository interface {
	Create(ctx context.Context, run *entity.PipelineRun) error
	Update(ctx context.Context, run *entity.PipelineRun) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PipelineRun, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PipelineRun, error)

	// FindNextPending returns the lowest-turn non-terminal run of a session.
	FindNextPending(ctx context.Context, sessionId uuid.UUID) (*entity.PipelineRun, error)
	// FindLatest returns the highest-turn run of a session.
	FindLatest(ctx context.Context, sessionId uuid.UUID) (*entity.PipelineRun, error)
	// FindPendingSessionIds lists sessions that have non-terminal runs.
	FindPendingSessionIds(ctx context.Context) ([]uuid.UUID, error)
}

type PipelineStepRepository interface {
	FindByKey(ctx context.Context, key string) (*entity.PipelineStep, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PipelineStep, error)
	Save(ctx context.Context, step *entity.PipelineStep) error
	// DeleteByRun drops the checkpoints of a run. Named steps survive only when they succeeded.
	DeleteByRun(ctx context.Context, runId uuid.UUID, keepSucceeded ...string) error
}
