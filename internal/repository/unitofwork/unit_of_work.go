package unitofwork

import (
	"context"

	"ai-counselor-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository

	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	SessionMemoryRepository() contract.SessionMemoryRepository

	PipelineRunRepository() contract.PipelineRunRepository
	PipelineStepRepository() contract.PipelineStepRepository

	MoodEntryRepository() contract.MoodEntryRepository
	ActivityRepository() contract.ActivityRepository
}
