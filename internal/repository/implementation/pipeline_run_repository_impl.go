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

var terminalRunStatuses = []string{constant.RunStatusCompleted, constant.RunStatusFailed}

type PipelineRunRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PipelineMapper
}

func NewPipelineRunRepository(db *gorm.DB) contract.PipelineRunRepository {
	return &PipelineRunRepositoryImpl{
		db:     db,
		mapper: mapper.NewPipelineMapper(),
	}
}

func (r *PipelineRunRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	return specification.ApplyAll(db, specs...)
}

func (r *PipelineRunRepositoryImpl) Create(ctx context.Context, run *entity.PipelineRun) error {
	m := r.mapper.PipelineRunToModel(run)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*run = *r.mapper.PipelineRunToEntity(m)
	return nil
}

func (r *PipelineRunRepositoryImpl) Update(ctx context.Context, run *entity.PipelineRun) error {
	m := r.mapper.PipelineRunToModel(run)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*run = *r.mapper.PipelineRunToEntity(m)
	return nil
}

func (r *PipelineRunRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PipelineRun, error) {
	var m model.PipelineRun
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.PipelineRunToEntity(&m), nil
}

func (r *PipelineRunRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PipelineRun, error) {
	var models []*model.PipelineRun
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.PipelineRun, len(models))
	for i, m := range models {
		entities[i] = r.mapper.PipelineRunToEntity(m)
	}
	return entities, nil
}

func (r *PipelineRunRepositoryImpl) FindNextPending(ctx context.Context, sessionId uuid.UUID) (*entity.PipelineRun, error) {
	return r.FindOne(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.ByStatusNotIn{Statuses: terminalRunStatuses},
		specification.OrderBy{Field: "turn"},
	)
}

func (r *PipelineRunRepositoryImpl) FindLatest(ctx context.Context, sessionId uuid.UUID) (*entity.PipelineRun, error) {
	return r.FindOne(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "turn", Desc: true},
	)
}

func (r *PipelineRunRepositoryImpl) FindPendingSessionIds(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.PipelineRun{}).
		Where("status NOT IN ?", terminalRunStatuses).
		Distinct().
		Pluck("chat_session_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
