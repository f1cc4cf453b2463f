package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-counselor-be/internal/constant"
	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/repository/specification"
	"ai-counselor-be/internal/repository/unitofwork"
	"ai-counselor-be/pkg/counsel/alert"
	"ai-counselor-be/pkg/counsel/memory"
	"ai-counselor-be/pkg/counsel/prompt"
	"ai-counselor-be/pkg/llm"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

func newID() uuid.UUID {
	return uuid.New()
}

// execute drives one run from its last checkpoint to a terminal state.
// A returned error means the run could not be recorded and stays non-terminal.
func (o *Orchestrator) execute(ctx context.Context, run *entity.PipelineRun) error {
	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("session.id", run.ChatSessionId.String()),
		attribute.String("run.id", run.Id.String()),
		attribute.Int("run.turn", run.Turn),
	))
	defer span.End()

	if run.MemoryBefore == nil {
		mem, err := o.loadMemory(ctx, run.ChatSessionId)
		if err != nil {
			return o.abort(ctx, run, fmt.Errorf("load memory: %w", err))
		}
		run.MemoryBefore = &mem
	}
	run.Attempt++
	if run.StartedAt == nil {
		now := o.now()
		run.StartedAt = &now
	}

	if err := o.transition(ctx, run, constant.RunStatusAnalyzing, constant.StepAnalyze); err != nil {
		return o.abort(ctx, run, err)
	}
	if err := o.analyze(ctx, run); err != nil {
		return o.abort(ctx, run, err)
	}

	if err := o.transition(ctx, run, constant.RunStatusMemoryUpdating, constant.StepUpdateMemory); err != nil {
		return o.abort(ctx, run, err)
	}
	if err := o.updateMemory(ctx, run); err != nil {
		return o.abort(ctx, run, err)
	}

	reply, err := o.respond(ctx, run)
	if err != nil {
		return o.abort(ctx, run, err)
	}

	if err := o.transition(ctx, run, constant.RunStatusPersisting, constant.StepPersist); err != nil {
		return o.abort(ctx, run, err)
	}
	if err := o.persist(ctx, run, reply); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return o.abort(ctx, run, err)
	}
	return nil
}

func (o *Orchestrator) analyze(ctx context.Context, run *entity.PipelineRun) error {
	step, done, err := o.openStep(ctx, o.uowFactory.NewUnitOfWork(ctx), run, constant.StepAnalyze)
	if err != nil {
		return err
	}
	if done {
		var a entity.Analysis
		if err := json.Unmarshal(step.Output, &a); err == nil {
			run.Analysis = &a
			return nil
		}
	}

	ctx, span := o.tracer.Start(ctx, "pipeline."+constant.StepAnalyze)
	defer span.End()

	a, attempts, err := retry(ctx, o, constant.StepAnalyze, o.cfg.MaxAttempts, o.cfg.StepTimeout,
		func(ctx context.Context) (entity.Analysis, error) {
			return o.analyzer.Analyze(ctx, run.Input.Text)
		})
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := constant.StepStatusSucceeded
	if err != nil {
		o.logger.Warn(logModule, "Analysis unavailable, using default", map[string]interface{}{
			"run_id":   run.Id.String(),
			"attempts": attempts,
			"error":    err.Error(),
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, "fallback")
		a = entity.DefaultAnalysis()
		status = constant.StepStatusFallback
	}
	span.SetAttributes(attribute.Int("analysis.risk_level", a.RiskLevel))

	run.Analysis = &a
	o.closeStep(step, status, attempts, a, err)

	return o.durable(ctx, "checkpoint "+constant.StepAnalyze, func(ctx context.Context) error {
		return o.inTx(ctx, func(uow unitofwork.UnitOfWork) error {
			if err := uow.PipelineStepRepository().Save(ctx, step); err != nil {
				return err
			}
			return uow.PipelineRunRepository().Update(ctx, run)
		})
	})
}

// updateMemory folds the analysis into the memory the run started from, so repeating it
// yields the same memory instead of applying the analysis twice.
func (o *Orchestrator) updateMemory(ctx context.Context, run *entity.PipelineRun) error {
	step, done, err := o.openStep(ctx, o.uowFactory.NewUnitOfWork(ctx), run, constant.StepUpdateMemory)
	if err != nil {
		return err
	}
	if done && run.MemoryAfter != nil {
		return nil
	}

	next := memory.ApplyAnalysis(*run.MemoryBefore, *run.Analysis)
	run.MemoryAfter = &next
	o.closeStep(step, constant.StepStatusSucceeded, 1, next, nil)

	err = o.durable(ctx, "checkpoint "+constant.StepUpdateMemory, func(ctx context.Context) error {
		return o.inTx(ctx, func(uow unitofwork.UnitOfWork) error {
			if err := uow.SessionMemoryRepository().Upsert(ctx, o.sessionMemory(run)); err != nil {
				return err
			}
			if err := uow.PipelineStepRepository().Save(ctx, step); err != nil {
				return err
			}
			return uow.PipelineRunRepository().Update(ctx, run)
		})
	})
	if err != nil {
		return err
	}

	if o.cache != nil {
		o.cache.Put(run.ChatSessionId, next)
	}
	return nil
}

// respond raises the safety alert next to reply generation. Alerting never holds the reply back
// for longer than AlertTimeout and never fails the run.
func (o *Orchestrator) respond(ctx context.Context, run *entity.PipelineRun) (string, error) {
	escalate := o.monitor != nil && o.monitor.ShouldEscalate(*run.Analysis)

	if escalate {
		if err := o.transition(ctx, run, constant.RunStatusRiskEvaluating, constant.StepRiskEvaluate); err != nil {
			return "", err
		}
	} else if err := o.skipRiskEvaluation(ctx, run); err != nil {
		return "", err
	}

	g, gctx := errgroup.WithContext(ctx)
	if escalate {
		alertRun := *run
		g.Go(func() error {
			o.evaluateRisk(gctx, &alertRun)
			return nil
		})
	}

	if err := o.transition(ctx, run, constant.RunStatusResponseGenerating, constant.StepGenerateResponse); err != nil {
		_ = g.Wait()
		return "", err
	}

	genRun := *run
	var reply string
	g.Go(func() error {
		r, err := o.generate(gctx, &genRun)
		reply = r
		return err
	})

	if err := g.Wait(); err != nil {
		return "", err
	}
	return reply, nil
}

func (o *Orchestrator) skipRiskEvaluation(ctx context.Context, run *entity.PipelineRun) error {
	step, done, err := o.openStep(ctx, o.uowFactory.NewUnitOfWork(ctx), run, constant.StepRiskEvaluate)
	if err != nil || done {
		return err
	}
	o.closeStep(step, constant.StepStatusSkipped, 0, nil, nil)
	return o.durable(ctx, "checkpoint "+constant.StepRiskEvaluate, func(ctx context.Context) error {
		return o.uowFactory.NewUnitOfWork(ctx).PipelineStepRepository().Save(ctx, step)
	})
}

func (o *Orchestrator) evaluateRisk(ctx context.Context, run *entity.PipelineRun) {
	details := map[string]interface{}{
		"session_id": run.ChatSessionId.String(),
		"run_id":     run.Id.String(),
		"risk_level": run.Analysis.RiskLevel,
	}

	step, done, err := o.openStep(ctx, o.uowFactory.NewUnitOfWork(ctx), run, constant.StepRiskEvaluate)
	if err != nil {
		details["error"] = err.Error()
		o.logger.Error(logModule, "Risk checkpoint unreadable, alert not sent", details)
		return
	}
	if done {
		return
	}

	ctx, span := o.tracer.Start(ctx, "pipeline."+constant.StepRiskEvaluate)
	defer span.End()

	safetyAlert := alert.SafetyAlert{
		SessionId: run.ChatSessionId.String(),
		UserId:    run.UserId.String(),
		RunId:     run.Id.String(),
		Message:   run.Input.Text,
		RiskLevel: run.Analysis.RiskLevel,
		Timestamp: run.Input.SubmittedAt,
	}
	key := run.StepKey(constant.StepRiskEvaluate)

	alertCtx, cancel := context.WithTimeout(ctx, o.cfg.AlertTimeout)
	defer cancel()

	_, attempts, err := retry(alertCtx, o, constant.StepRiskEvaluate, o.cfg.MaxAttempts, o.cfg.AlertTimeout,
		func(ctx context.Context) (struct{}, error) {
			if o.notifier == nil {
				return struct{}{}, nil
			}
			return struct{}{}, o.notifier.Notify(ctx, key, safetyAlert)
		})
	if ctx.Err() != nil {
		// Shutting down. Without a record the alert is re-sent on resume, the key dedupes it.
		return
	}

	status := constant.StepStatusSucceeded
	if err != nil {
		details["error"] = err.Error()
		details["attempts"] = attempts
		o.logger.Error(logModule, "Safety alert delivery failed", details)
		span.RecordError(err)
		span.SetStatus(codes.Error, "alert failed")
		status = constant.StepStatusFailed
	} else {
		o.logger.Info(logModule, "Safety alert emitted", details)
	}

	o.closeStep(step, status, attempts, safetyAlert, err)
	if err := o.durable(ctx, "checkpoint "+constant.StepRiskEvaluate, func(ctx context.Context) error {
		return o.uowFactory.NewUnitOfWork(ctx).PipelineStepRepository().Save(ctx, step)
	}); err != nil {
		o.logger.Error(logModule, "Risk checkpoint not saved", map[string]interface{}{
			"run_id": run.Id.String(),
			"error":  err.Error(),
		})
	}
}

func (o *Orchestrator) generate(ctx context.Context, run *entity.PipelineRun) (string, error) {
	step, done, err := o.openStep(ctx, o.uowFactory.NewUnitOfWork(ctx), run, constant.StepGenerateResponse)
	if err != nil {
		return "", err
	}
	if done {
		var reply string
		if err := json.Unmarshal(step.Output, &reply); err == nil && reply != "" {
			return reply, nil
		}
	}

	ctx, span := o.tracer.Start(ctx, "pipeline."+constant.StepGenerateResponse)
	defer span.End()

	history, err := o.history(ctx, run)
	if err != nil {
		o.logger.Warn(logModule, "History unavailable, replying without it", map[string]interface{}{
			"run_id": run.Id.String(),
			"error":  err.Error(),
		})
	}

	mem := *run.MemoryBefore
	if run.MemoryAfter != nil {
		mem = *run.MemoryAfter
	}
	in := prompt.Input{
		SystemPrompt: run.Input.SystemPrompt,
		Goals:        run.Input.Goals,
		Message:      run.Input.Text,
		Analysis:     *run.Analysis,
		Memory:       mem,
		History:      history,
	}

	reply, attempts, err := retry(ctx, o, constant.StepGenerateResponse, o.cfg.MaxAttempts, o.cfg.StepTimeout,
		func(ctx context.Context) (string, error) {
			return o.generator.Generate(ctx, in)
		})
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	status := constant.StepStatusSucceeded
	if err != nil {
		o.logger.Warn(logModule, "Response unavailable, using fallback reply", map[string]interface{}{
			"run_id":   run.Id.String(),
			"attempts": attempts,
			"error":    err.Error(),
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, "fallback")
		reply = constant.FallbackReply
		status = constant.StepStatusFallback
	}

	o.closeStep(step, status, attempts, reply, err)
	err = o.durable(ctx, "checkpoint "+constant.StepGenerateResponse, func(ctx context.Context) error {
		return o.uowFactory.NewUnitOfWork(ctx).PipelineStepRepository().Save(ctx, step)
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (o *Orchestrator) persist(ctx context.Context, run *entity.PipelineRun, reply string) error {
	ctx, span := o.tracer.Start(ctx, "pipeline."+constant.StepPersist)
	defer span.End()

	run.Reply = reply
	err := o.durable(ctx, constant.StepPersist, func(ctx context.Context) error {
		return o.commitTurn(ctx, run)
	})
	if err != nil {
		return fmt.Errorf("persist turn %d: %w", run.Turn, err)
	}

	if o.cache != nil && run.MemoryAfter != nil {
		o.cache.Put(run.ChatSessionId, *run.MemoryAfter)
	}
	o.logger.Info(logModule, "Run completed", map[string]interface{}{
		"session_id": run.ChatSessionId.String(),
		"run_id":     run.Id.String(),
		"turn":       run.Turn,
		"risk_level": run.Analysis.RiskLevel,
	})
	o.observe(run)
	o.finish(run)
	return nil
}

// commitTurn writes both halves of the turn, the memory and the terminal run state in one
// transaction. Message inserts are keyed, so repeating it never duplicates the transcript.
func (o *Orchestrator) commitTurn(ctx context.Context, run *entity.PipelineRun) error {
	uow := o.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: run.ChatSessionId})
	if err != nil {
		return err
	}
	if session == nil {
		return backoff.Permanent(fmt.Errorf("session %s not found", run.ChatSessionId))
	}

	now := o.now()
	userTs := run.Input.SubmittedAt
	if session.LastMessageAt != nil && session.LastMessageAt.After(userTs) {
		userTs = *session.LastMessageAt
	}
	assistantTs := now
	if assistantTs.Before(userTs) {
		assistantTs = userTs
	}

	messages := []*entity.ChatMessage{
		{
			Id:             newID(),
			ChatSessionId:  run.ChatSessionId,
			Turn:           run.Turn,
			Sequence:       entity.MessageSequence(run.Turn, false),
			Role:           constant.ChatMessageRoleUser,
			Content:        run.Input.Text,
			Timestamp:      userTs,
			IdempotencyKey: entity.MessageKey(run.ChatSessionId, run.Turn, constant.ChatMessageRoleUser),
		},
		{
			Id:             newID(),
			ChatSessionId:  run.ChatSessionId,
			Turn:           run.Turn,
			Sequence:       entity.MessageSequence(run.Turn, true),
			Role:           constant.ChatMessageRoleAssistant,
			Content:        run.Reply,
			Timestamp:      assistantTs,
			IdempotencyKey: entity.MessageKey(run.ChatSessionId, run.Turn, constant.ChatMessageRoleAssistant),
			Metadata:       Metadata(run),
		},
	}

	added := 0
	for _, msg := range messages {
		inserted, err := uow.ChatMessageRepository().CreateIfAbsent(ctx, msg)
		if err != nil {
			return fmt.Errorf("insert %s message: %w", msg.Role, err)
		}
		if inserted {
			added++
		}
	}
	if added > 0 {
		if err := uow.ChatSessionRepository().RecordMessages(ctx, run.ChatSessionId, added, assistantTs); err != nil {
			return err
		}
	}

	if run.MemoryAfter != nil {
		if err := uow.SessionMemoryRepository().Upsert(ctx, o.sessionMemory(run)); err != nil {
			return err
		}
	}

	step, _, err := o.openStep(ctx, uow, run, constant.StepPersist)
	if err != nil {
		return err
	}
	o.closeStep(step, constant.StepStatusSucceeded, 1, map[string]interface{}{
		"messages_added": added,
	}, nil)
	if err := uow.PipelineStepRepository().Save(ctx, step); err != nil {
		return err
	}

	completed := *run
	completed.Status = constant.RunStatusCompleted
	completed.CurrentStep = ""
	completed.Error = ""
	completed.EndedAt = &now
	if err := uow.PipelineRunRepository().Update(ctx, &completed); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}
	*run = completed
	return nil
}

// abort marks the run FAILED unless the orchestrator is shutting down, in which case the run
// is left for recovery.
func (o *Orchestrator) abort(ctx context.Context, run *entity.PipelineRun, cause error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	o.logger.Error(logModule, "Run failed", map[string]interface{}{
		"session_id": run.ChatSessionId.String(),
		"run_id":     run.Id.String(),
		"turn":       run.Turn,
		"step":       run.CurrentStep,
		"error":      cause.Error(),
	})

	now := o.now()
	run.Status = constant.RunStatusFailed
	run.Error = cause.Error()
	run.EndedAt = &now

	err := o.durable(ctx, "record failure", func(ctx context.Context) error {
		return o.uowFactory.NewUnitOfWork(ctx).PipelineRunRepository().Update(ctx, run)
	})
	o.observe(run)
	o.finish(run)
	if err != nil {
		return fmt.Errorf("record failure of run %s: %w", run.Id, err)
	}
	return nil
}

func (o *Orchestrator) transition(ctx context.Context, run *entity.PipelineRun, status, step string) error {
	run.Status = status
	run.CurrentStep = step
	err := o.durable(ctx, "transition "+status, func(ctx context.Context) error {
		return o.uowFactory.NewUnitOfWork(ctx).PipelineRunRepository().Update(ctx, run)
	})
	if err != nil {
		return fmt.Errorf("record %s: %w", status, err)
	}
	o.observe(run)
	return nil
}

// openStep returns the checkpoint of a step, creating it when absent. done reports a
// checkpoint that must be reused instead of executing the step again.
func (o *Orchestrator) openStep(ctx context.Context, uow unitofwork.UnitOfWork, run *entity.PipelineRun, name string) (*entity.PipelineStep, bool, error) {
	step, err := uow.PipelineStepRepository().FindByKey(ctx, run.StepKey(name))
	if err != nil {
		return nil, false, fmt.Errorf("load %s checkpoint: %w", name, err)
	}
	if step != nil && step.Done() {
		return step, true, nil
	}
	if step == nil {
		step = &entity.PipelineStep{
			Id:             newID(),
			RunId:          run.Id,
			Name:           name,
			IdempotencyKey: run.StepKey(name),
		}
	}
	step.StartedAt = o.now()
	step.EndedAt = nil
	return step, false, nil
}

func (o *Orchestrator) closeStep(step *entity.PipelineStep, status string, attempts int, output interface{}, cause error) {
	now := o.now()
	step.Status = status
	step.Attempts += attempts
	step.Output = nil
	if output != nil {
		if data, err := json.Marshal(output); err == nil {
			step.Output = data
		}
	}
	step.Error = ""
	if cause != nil {
		step.Error = cause.Error()
	}
	step.EndedAt = &now
}

func (o *Orchestrator) inTx(ctx context.Context, fn func(uow unitofwork.UnitOfWork) error) error {
	uow := o.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := fn(uow); err != nil {
		return err
	}
	return uow.Commit()
}

func (o *Orchestrator) loadMemory(ctx context.Context, sessionId uuid.UUID) (entity.Memory, error) {
	stored, err := o.uowFactory.NewUnitOfWork(ctx).SessionMemoryRepository().FindBySessionId(ctx, sessionId)
	if err != nil {
		return entity.Memory{}, err
	}
	if stored == nil {
		return entity.NewMemory(), nil
	}
	return stored.Memory, nil
}

func (o *Orchestrator) sessionMemory(run *entity.PipelineRun) *entity.SessionMemory {
	return &entity.SessionMemory{
		ChatSessionId: run.ChatSessionId,
		UserId:        run.UserId,
		Memory:        *run.MemoryAfter,
		LastTurn:      run.Turn,
		UpdatedAt:     o.now(),
	}
}

// history is the transcript before this run's turn, oldest first.
func (o *Orchestrator) history(ctx context.Context, run *entity.PipelineRun) ([]llm.Message, error) {
	recent, err := o.uowFactory.NewUnitOfWork(ctx).ChatMessageRepository().FindRecent(ctx, run.ChatSessionId, o.cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}

	out := make([]llm.Message, 0, len(recent))
	for _, msg := range recent {
		if msg.Turn >= run.Turn {
			continue
		}
		out = append(out, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	return out, nil
}
