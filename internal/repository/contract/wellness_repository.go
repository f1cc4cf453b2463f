package contract

import (
	"context"

	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/repository/specification"
)

type MoodEntryRepository interface {
	Create(ctx context.Context, entry *entity.MoodEntry) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MoodEntry, error)
}

type ActivityRepository interface {
	Create(ctx context.Context, activity *entity.Activity) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Activity, error)
}
