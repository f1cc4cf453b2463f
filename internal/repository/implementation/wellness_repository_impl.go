package implementation

import (
	"context"

	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/mapper"
	"ai-counselor-be/internal/model"
	"ai-counselor-be/internal/repository/contract"
	"ai-counselor-be/internal/repository/specification"

	"gorm.io/gorm"
)

type MoodEntryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.WellnessMapper
}

func NewMoodEntryRepository(db *gorm.DB) contract.MoodEntryRepository {
	return &MoodEntryRepositoryImpl{
		db:     db,
		mapper: mapper.NewWellnessMapper(),
	}
}

func (r *MoodEntryRepositoryImpl) Create(ctx context.Context, entry *entity.MoodEntry) error {
	m := r.mapper.MoodEntryToModel(entry)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*entry = *r.mapper.MoodEntryToEntity(m)
	return nil
}

func (r *MoodEntryRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MoodEntry, error) {
	var models []*model.MoodEntry
	query := r.db.WithContext(ctx)
	query = specification.ApplyAll(query, specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.MoodEntry, len(models))
	for i, m := range models {
		entities[i] = r.mapper.MoodEntryToEntity(m)
	}
	return entities, nil
}

type ActivityRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.WellnessMapper
}

func NewActivityRepository(db *gorm.DB) contract.ActivityRepository {
	return &ActivityRepositoryImpl{
		db:     db,
		mapper: mapper.NewWellnessMapper(),
	}
}

func (r *ActivityRepositoryImpl) Create(ctx context.Context, activity *entity.Activity) error {
	m := r.mapper.ActivityToModel(activity)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*activity = *r.mapper.ActivityToEntity(m)
	return nil
}

func (r *ActivityRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Activity, error) {
	var models []*model.Activity
	query := r.db.WithContext(ctx)
	query = specification.ApplyAll(query, specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Activity, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ActivityToEntity(m)
	}
	return entities, nil
}
