package pipeline

import (
	"context"
	"fmt"

	"ai-counselor-be/internal/constant"
	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/repository/specification"
	"ai-counselor-be/internal/repository/unitofwork"
)

// Submit queues a run for the next turn of the session and returns it without waiting.
//
// With a client key, a resubmission returns the run already holding that key: completed and
// in-flight runs as they are, a failed run re-queued from analysis when it is still the latest
// turn. A failed older run gives up its key and the message gets a new turn.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (*entity.PipelineRun, error) {
	run, event, err := o.enqueue(ctx, req)
	if err != nil {
		if req.ClientKey == "" {
			return nil, err
		}
		// A concurrent resubmission may have won the client-key unique index.
		existing, findErr := o.findByClientKey(ctx, o.uowFactory.NewUnitOfWork(ctx), req)
		if findErr != nil || existing == nil {
			return nil, err
		}
		return existing, nil
	}

	if event != nil {
		o.dispatch(ctx, *event)
	}
	return run, nil
}

func (o *Orchestrator) enqueue(ctx context.Context, req SubmitRequest) (*entity.PipelineRun, *MessageSubmitted, error) {
	uow := o.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, err
	}
	defer uow.Rollback()

	if req.ClientKey != "" {
		existing, err := o.findByClientKey(ctx, uow, req)
		if err != nil {
			return nil, nil, err
		}
		if existing != nil {
			run, requeued, err := o.replay(ctx, uow, existing)
			if err != nil {
				return nil, nil, err
			}
			if run != nil {
				if err := uow.Commit(); err != nil {
					return nil, nil, err
				}
				if !requeued {
					return run, nil, nil
				}
				mem := entity.NewMemory()
				if run.MemoryBefore != nil {
					mem = *run.MemoryBefore
				}
				event := o.eventFor(run, nil, mem)
				return run, &event, nil
			}
		}
	}

	turn, err := uow.ChatSessionRepository().NextTurn(ctx, req.SessionId)
	if err != nil {
		return nil, nil, fmt.Errorf("allocate turn: %w", err)
	}

	mem := entity.NewMemory()
	stored, err := uow.SessionMemoryRepository().FindBySessionId(ctx, req.SessionId)
	if err != nil {
		return nil, nil, err
	}
	if stored != nil {
		mem = stored.Memory
	}

	history, err := uow.ChatMessageRepository().FindRecent(ctx, req.SessionId, o.cfg.HistoryLimit)
	if err != nil {
		return nil, nil, err
	}

	now := o.now()
	run := &entity.PipelineRun{
		Id:             newID(),
		ChatSessionId:  req.SessionId,
		UserId:         req.UserId,
		Turn:           turn,
		IdempotencyKey: entity.RunKey(req.SessionId, turn),
		Status:         constant.RunStatusQueued,
		Input: entity.RunInput{
			Text:         req.Text,
			Goals:        append([]string(nil), o.cfg.Goals...),
			SystemPrompt: o.cfg.SystemPrompt,
			SubmittedAt:  now,
		},
		QueuedAt: now,
	}
	if req.ClientKey != "" {
		key := req.ClientKey
		run.ClientKey = &key
	}

	if err := uow.PipelineRunRepository().Create(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("create run: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, nil, err
	}

	o.logger.Info(logModule, "Run queued", map[string]interface{}{
		"session_id": run.ChatSessionId.String(),
		"run_id":     run.Id.String(),
		"turn":       run.Turn,
	})
	o.observe(run)

	event := o.eventFor(run, history, mem)
	return run, &event, nil
}

func (o *Orchestrator) findByClientKey(ctx context.Context, uow unitofwork.UnitOfWork, req SubmitRequest) (*entity.PipelineRun, error) {
	return uow.PipelineRunRepository().FindOne(ctx,
		specification.ByChatSessionID{ChatSessionID: req.SessionId},
		specification.ByClientKey{ClientKey: req.ClientKey},
	)
}

// replay decides what a resubmitted client key gets. A nil run means "allocate a new turn".
func (o *Orchestrator) replay(ctx context.Context, uow unitofwork.UnitOfWork, existing *entity.PipelineRun) (*entity.PipelineRun, bool, error) {
	runs := uow.PipelineRunRepository()

	if existing.Status != constant.RunStatusFailed {
		return existing, false, nil
	}

	latest, err := runs.FindLatest(ctx, existing.ChatSessionId)
	if err != nil {
		return nil, false, err
	}

	if latest != nil && latest.Id == existing.Id {
		existing.Status = constant.RunStatusQueued
		existing.CurrentStep = ""
		existing.Error = ""
		existing.EndedAt = nil
		existing.QueuedAt = o.now()
		if err := runs.Update(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("requeue run: %w", err)
		}
		// A delivered alert survives so the retry does not page twice. A skipped or failed
		// risk step is evaluated again against the new analysis.
		if err := uow.PipelineStepRepository().DeleteByRun(ctx, existing.Id, constant.StepRiskEvaluate); err != nil {
			return nil, false, fmt.Errorf("reset steps: %w", err)
		}
		o.logger.Info(logModule, "Failed run requeued", map[string]interface{}{
			"session_id": existing.ChatSessionId.String(),
			"run_id":     existing.Id.String(),
			"turn":       existing.Turn,
		})
		return existing, true, nil
	}

	existing.ClientKey = nil
	if err := runs.Update(ctx, existing); err != nil {
		return nil, false, fmt.Errorf("release client key: %w", err)
	}
	return nil, false, nil
}

func (o *Orchestrator) eventFor(run *entity.PipelineRun, history []*entity.ChatMessage, mem entity.Memory) MessageSubmitted {
	items := make([]HistoryItem, 0, len(history))
	for _, msg := range history {
		items = append(items, HistoryItem{Role: msg.Role, Content: msg.Content, Timestamp: msg.Timestamp})
	}

	return MessageSubmitted{
		RunId:           run.Id,
		SessionId:       run.ChatSessionId,
		UserId:          run.UserId,
		Turn:            run.Turn,
		Text:            run.Input.Text,
		HistorySnapshot: items,
		MemorySnapshot:  mem,
		Goals:           run.Input.Goals,
		SystemPrompt:    run.Input.SystemPrompt,
		SubmittedAt:     run.Input.SubmittedAt,
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, event MessageSubmitted) {
	if o.dispatcher == nil {
		o.Wake(event.SessionId)
		return
	}
	if err := o.dispatcher.Dispatch(ctx, event); err != nil {
		o.logger.Warn(logModule, "Dispatch failed, waking lane directly", map[string]interface{}{
			"run_id": event.RunId.String(),
			"error":  err.Error(),
		})
		o.Wake(event.SessionId)
	}
}
