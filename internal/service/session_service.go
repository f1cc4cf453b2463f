package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-counselor-be/internal/constant"
	"ai-counselor-be/internal/dto"
	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/pkg/logger"
	"ai-counselor-be/internal/repository/memory"
	"ai-counselor-be/internal/repository/specification"
	"ai-counselor-be/internal/repository/unitofwork"
	"ai-counselor-be/pkg/counsel/pipeline"

	"github.com/google/uuid"
)

// MessagePipeline is the part of the orchestrator the session API drives.
type MessagePipeline interface {
	Submit(ctx context.Context, req pipeline.SubmitRequest) (*entity.PipelineRun, error)
	Await(ctx context.Context, runId uuid.UUID) (*pipeline.Result, error)
}

type ISessionService interface {
	CreateSession(ctx context.Context, userId uuid.UUID) (*dto.CreateSessionResponse, error)
	SubmitMessage(ctx context.Context, userId, sessionId uuid.UUID, request *dto.SubmitMessageRequest, clientKey string) (*dto.SubmitMessageResponse, error)
	GetHistory(ctx context.Context, userId, sessionId uuid.UUID) ([]*dto.MessageResponse, error)
	ListSessions(ctx context.Context, userId uuid.UUID) ([]*dto.SessionSummaryResponse, error)
	CompleteSession(ctx context.Context, userId, sessionId uuid.UUID) (*dto.SessionSummaryResponse, error)
	GetMemory(ctx context.Context, userId, sessionId uuid.UUID) (*dto.MemoryResponse, error)
	GetRun(ctx context.Context, userId, sessionId, runId uuid.UUID) (*dto.RunResponse, error)
}

type sessionService struct {
	uowFactory  unitofwork.RepositoryFactory
	pipeline    MessagePipeline
	memoryCache *memory.MemoryCache
	waitTimeout time.Duration
	logger      logger.ILogger
}

func NewSessionService(
	uowFactory unitofwork.RepositoryFactory,
	pipeline MessagePipeline,
	memoryCache *memory.MemoryCache,
	waitTimeout time.Duration,
	log logger.ILogger,
) ISessionService {
	return &sessionService{
		uowFactory:  uowFactory,
		pipeline:    pipeline,
		memoryCache: memoryCache,
		waitTimeout: waitTimeout,
		logger:      log,
	}
}

func (s *sessionService) CreateSession(ctx context.Context, userId uuid.UUID) (*dto.CreateSessionResponse, error) {
	if userId == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	now := time.Now().UTC()
	session := &entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Status:    constant.ChatSessionStatusActive,
		StartTime: now,
		CreatedAt: now,
	}
	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("SESSION", "Session created", map[string]interface{}{
		"session_id": session.Id.String(),
		"user_id":    userId.String(),
	})

	return &dto.CreateSessionResponse{SessionId: session.Id}, nil
}

// SubmitMessage queues the message and waits up to the configured timeout for the reply.
// The run keeps going when the wait ends early.
func (s *sessionService) SubmitMessage(ctx context.Context, userId, sessionId uuid.UUID, request *dto.SubmitMessageRequest, clientKey string) (*dto.SubmitMessageResponse, error) {
	if userId == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	session, err := s.ownedSession(ctx, userId, sessionId, ErrForbidden)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(request.Message)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if session.Status == constant.ChatSessionStatusCompleted {
		return nil, ErrSessionCompleted
	}

	run, err := s.pipeline.Submit(ctx, pipeline.SubmitRequest{
		SessionId: sessionId,
		UserId:    userId,
		Text:      text,
		ClientKey: strings.TrimSpace(clientKey),
	})
	if err != nil {
		return nil, fmt.Errorf("submit message: %w", err)
	}

	waitCtx := ctx
	if s.waitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.waitTimeout)
		defer cancel()
	}

	res, err := s.pipeline.Await(waitCtx, run.Id)
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrRunFailed):
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("SESSION", "Reply wait timed out, run continues", map[string]interface{}{
			"session_id": sessionId.String(),
			"run_id":     run.Id.String(),
		})
		return nil, ErrReplyTimeout
	default:
		return nil, err
	}

	return &dto.SubmitMessageResponse{
		RunId:    res.RunId,
		Turn:     res.Turn,
		Response: res.Reply,
		Analysis: res.Analysis,
		Metadata: res.Metadata,
	}, nil
}

func (s *sessionService) GetHistory(ctx context.Context, userId, sessionId uuid.UUID) ([]*dto.MessageResponse, error) {
	if _, err := s.ownedSession(ctx, userId, sessionId, ErrSessionNotFound); err != nil {
		return nil, err
	}

	messages, err := s.uowFactory.NewUnitOfWork(ctx).ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "sequence"},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.MessageResponse, 0, len(messages))
	for _, msg := range messages {
		res = append(res, &dto.MessageResponse{
			Id:        msg.Id,
			Turn:      msg.Turn,
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
			Metadata:  msg.Metadata,
		})
	}
	return res, nil
}

func (s *sessionService) ListSessions(ctx context.Context, userId uuid.UUID) ([]*dto.SessionSummaryResponse, error) {
	if userId == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	sessions, err := s.uowFactory.NewUnitOfWork(ctx).ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "start_time", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.SessionSummaryResponse, 0, len(sessions))
	for _, session := range sessions {
		res = append(res, summaryOf(session))
	}
	return res, nil
}

func (s *sessionService) CompleteSession(ctx context.Context, userId, sessionId uuid.UUID) (*dto.SessionSummaryResponse, error) {
	session, err := s.ownedSession(ctx, userId, sessionId, ErrForbidden)
	if err != nil {
		return nil, err
	}

	if session.Status != constant.ChatSessionStatusCompleted {
		if err := s.uowFactory.NewUnitOfWork(ctx).ChatSessionRepository().UpdateStatus(ctx, sessionId, constant.ChatSessionStatusCompleted); err != nil {
			return nil, err
		}
		session.Status = constant.ChatSessionStatusCompleted
	}

	return summaryOf(session), nil
}

func (s *sessionService) GetMemory(ctx context.Context, userId, sessionId uuid.UUID) (*dto.MemoryResponse, error) {
	if _, err := s.ownedSession(ctx, userId, sessionId, ErrSessionNotFound); err != nil {
		return nil, err
	}

	if s.memoryCache != nil {
		if m, ok := s.memoryCache.Get(sessionId); ok {
			return &dto.MemoryResponse{SessionId: sessionId, Memory: m}, nil
		}
	}

	stored, err := s.uowFactory.NewUnitOfWork(ctx).SessionMemoryRepository().FindBySessionId(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	m := entity.NewMemory()
	if stored != nil {
		m = stored.Memory
	}
	if s.memoryCache != nil {
		s.memoryCache.Put(sessionId, m)
	}

	return &dto.MemoryResponse{SessionId: sessionId, Memory: m}, nil
}

func (s *sessionService) GetRun(ctx context.Context, userId, sessionId, runId uuid.UUID) (*dto.RunResponse, error) {
	if _, err := s.ownedSession(ctx, userId, sessionId, ErrSessionNotFound); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	run, err := uow.PipelineRunRepository().FindOne(ctx,
		specification.ByID{ID: runId},
		specification.ByChatSessionID{ChatSessionID: sessionId},
	)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}

	steps, err := uow.PipelineStepRepository().FindAll(ctx,
		specification.ByRunID{RunID: runId},
		specification.OrderBy{Field: "started_at"},
	)
	if err != nil {
		return nil, err
	}

	res := &dto.RunResponse{
		RunId:       run.Id,
		SessionId:   run.ChatSessionId,
		Turn:        run.Turn,
		Status:      run.Status,
		CurrentStep: run.CurrentStep,
		Attempt:     run.Attempt,
		Error:       run.Error,
		Reply:       run.Reply,
		Analysis:    run.Analysis,
		QueuedAt:    run.QueuedAt,
		StartedAt:   run.StartedAt,
		EndedAt:     run.EndedAt,
		Steps:       make([]*dto.StepResponse, 0, len(steps)),
	}
	for _, step := range steps {
		res.Steps = append(res.Steps, &dto.StepResponse{
			Name:      step.Name,
			Status:    step.Status,
			Attempts:  step.Attempts,
			Error:     step.Error,
			StartedAt: step.StartedAt,
			EndedAt:   step.EndedAt,
		})
	}
	return res, nil
}

// ownedSession loads the session and checks the caller owns it. Ownership failures surface as
// notOwned, so read endpoints can hide the session's existence.
func (s *sessionService) ownedSession(ctx context.Context, userId, sessionId uuid.UUID, notOwned error) (*entity.ChatSession, error) {
	if userId == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	session, err := s.uowFactory.NewUnitOfWork(ctx).ChatSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if !session.IsOwnedBy(userId) {
		return nil, notOwned
	}
	return session, nil
}

func summaryOf(session *entity.ChatSession) *dto.SessionSummaryResponse {
	return &dto.SessionSummaryResponse{
		SessionId:     session.Id,
		Status:        session.Status,
		StartTime:     session.StartTime,
		MessageCount:  session.MessageCount,
		LastMessageAt: session.LastMessageAt,
	}
}
