package mapper

import (
	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/model"
)

type WellnessMapper struct{}

func NewWellnessMapper() *WellnessMapper {
	return &WellnessMapper{}
}

func (m *WellnessMapper) MoodEntryToEntity(e *model.MoodEntry) *entity.MoodEntry {
	if e == nil {
		return nil
	}
	return &entity.MoodEntry{
		Id:        e.Id,
		UserId:    e.UserId,
		Score:     e.Score,
		Note:      e.Note,
		CreatedAt: e.CreatedAt,
	}
}

func (m *WellnessMapper) MoodEntryToModel(e *entity.MoodEntry) *model.MoodEntry {
	if e == nil {
		return nil
	}
	return &model.MoodEntry{
		Id:        e.Id,
		UserId:    e.UserId,
		Score:     e.Score,
		Note:      e.Note,
		CreatedAt: e.CreatedAt,
	}
}

func (m *WellnessMapper) ActivityToEntity(a *model.Activity) *entity.Activity {
	if a == nil {
		return nil
	}
	return &entity.Activity{
		Id:              a.Id,
		UserId:          a.UserId,
		Type:            a.Type,
		Name:            a.Name,
		Description:     a.Description,
		DurationMinutes: a.DurationMinutes,
		CreatedAt:       a.CreatedAt,
	}
}

func (m *WellnessMapper) ActivityToModel(a *entity.Activity) *model.Activity {
	if a == nil {
		return nil
	}
	return &model.Activity{
		Id:              a.Id,
		UserId:          a.UserId,
		Type:            a.Type,
		Name:            a.Name,
		Description:     a.Description,
		DurationMinutes: a.DurationMinutes,
		CreatedAt:       a.CreatedAt,
	}
}
