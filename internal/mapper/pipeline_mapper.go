package mapper

import (
	"encoding/json"

	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/model"

	"gorm.io/datatypes"
)

type PipelineMapper struct{}

func NewPipelineMapper() *PipelineMapper {
	return &PipelineMapper{}
}

func (m *PipelineMapper) PipelineRunToEntity(r *model.PipelineRun) *entity.PipelineRun {
	if r == nil {
		return nil
	}

	var input entity.RunInput
	if in := fromJSON[entity.RunInput](r.Input); in != nil {
		input = *in
	}

	return &entity.PipelineRun{
		Id:             r.Id,
		ChatSessionId:  r.ChatSessionId,
		UserId:         r.UserId,
		Turn:           r.Turn,
		IdempotencyKey: r.IdempotencyKey,
		ClientKey:      r.ClientKey,
		Status:         r.Status,
		CurrentStep:    r.CurrentStep,
		Input:          input,
		MemoryBefore:   fromJSON[entity.Memory](r.MemoryBefore),
		MemoryAfter:    fromJSON[entity.Memory](r.MemoryAfter),
		Analysis:       fromJSON[entity.Analysis](r.Analysis),
		Reply:          r.Reply,
		Attempt:        r.Attempt,
		Error:          r.Error,
		QueuedAt:       r.QueuedAt,
		StartedAt:      r.StartedAt,
		EndedAt:        r.EndedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (m *PipelineMapper) PipelineRunToModel(r *entity.PipelineRun) *model.PipelineRun {
	if r == nil {
		return nil
	}

	res := &model.PipelineRun{
		Id:             r.Id,
		ChatSessionId:  r.ChatSessionId,
		UserId:         r.UserId,
		Turn:           r.Turn,
		IdempotencyKey: r.IdempotencyKey,
		ClientKey:      r.ClientKey,
		Status:         r.Status,
		CurrentStep:    r.CurrentStep,
		Input:          toJSON(r.Input),
		Reply:          r.Reply,
		Attempt:        r.Attempt,
		Error:          r.Error,
		QueuedAt:       r.QueuedAt,
		StartedAt:      r.StartedAt,
		EndedAt:        r.EndedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.MemoryBefore != nil {
		res.MemoryBefore = toJSON(r.MemoryBefore)
	}
	if r.MemoryAfter != nil {
		res.MemoryAfter = toJSON(r.MemoryAfter)
	}
	if r.Analysis != nil {
		res.Analysis = toJSON(r.Analysis)
	}
	return res
}

func (m *PipelineMapper) PipelineStepToEntity(s *model.PipelineStep) *entity.PipelineStep {
	if s == nil {
		return nil
	}

	var output json.RawMessage
	if len(s.Output) > 0 {
		output = json.RawMessage(s.Output)
	}

	return &entity.PipelineStep{
		Id:             s.Id,
		RunId:          s.RunId,
		Name:           s.Name,
		IdempotencyKey: s.IdempotencyKey,
		Status:         s.Status,
		Attempts:       s.Attempts,
		Output:         output,
		Error:          s.Error,
		StartedAt:      s.StartedAt,
		EndedAt:        s.EndedAt,
	}
}

func (m *PipelineMapper) PipelineStepToModel(s *entity.PipelineStep) *model.PipelineStep {
	if s == nil {
		return nil
	}

	var output datatypes.JSON
	if len(s.Output) > 0 {
		output = datatypes.JSON(s.Output)
	}

	return &model.PipelineStep{
		Id:             s.Id,
		RunId:          s.RunId,
		Name:           s.Name,
		IdempotencyKey: s.IdempotencyKey,
		Status:         s.Status,
		Attempts:       s.Attempts,
		Output:         output,
		Error:          s.Error,
		StartedAt:      s.StartedAt,
		EndedAt:        s.EndedAt,
	}
}
