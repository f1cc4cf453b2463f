package implementation

import (
	"context"
	"errors"

	"ai-counselor-be/internal/constant"
	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/mapper"
	"ai-counselor-be/internal/model"
	"ai-counselor-be/internal/repository/contract"
	"ai-counselor-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PipelineStepRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PipelineMapper
}

func NewPipelineStepRepository(db *gorm.DB) contract.PipelineStepRepository {
	return &PipelineStepRepositoryImpl{
		db:     db,
		mapper: mapper.NewPipelineMapper(),
	}
}

func (r *PipelineStepRepositoryImpl) FindByKey(ctx context.Context, key string) (*entity.PipelineStep, error) {
	var m model.PipelineStep
	if err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.PipelineStepToEntity(&m), nil
}

func (r *PipelineStepRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PipelineStep, error) {
	var models []*model.PipelineStep
	query := r.db.WithContext(ctx)
	query = specification.ApplyAll(query, specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.PipelineStep, len(models))
	for i, m := range models {
		entities[i] = r.mapper.PipelineStepToEntity(m)
	}
	return entities, nil
}

// Save inserts or overwrites the step record identified by its primary key.
func (r *PipelineStepRepositoryImpl) Save(ctx context.Context, step *entity.PipelineStep) error {
	m := r.mapper.PipelineStepToModel(step)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*step = *r.mapper.PipelineStepToEntity(m)
	return nil
}

func (r *PipelineStepRepositoryImpl) DeleteByRun(ctx context.Context, runId uuid.UUID, keepSucceeded ...string) error {
	query := r.db.WithContext(ctx).Where("run_id = ?", runId)
	if len(keepSucceeded) > 0 {
		query = query.Where("NOT (name IN ? AND status = ?)", keepSucceeded, constant.StepStatusSucceeded)
	}
	return query.Delete(&model.PipelineStep{}).Error
}
