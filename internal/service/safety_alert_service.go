package service

import (
	"context"

	"ai-counselor-be/internal/constant"
	"ai-counselor-be/internal/pkg/logger"
	"ai-counselor-be/pkg/events"
	pktNats "ai-counselor-be/pkg/nats"
)

const safetyAlertDurable = "safety-alert-audit"

type EventSubscriber interface {
	Subscribe(ctx context.Context, eventType, durableName string, handler pktNats.EventHandler) error
}

// SafetyAlertService keeps an audit trail of every safety alert that reached the broker.
type SafetyAlertService struct {
	subscriber EventSubscriber
	logger     logger.ILogger
}

func NewSafetyAlertService(subscriber EventSubscriber, log logger.ILogger) *SafetyAlertService {
	return &SafetyAlertService{
		subscriber: subscriber,
		logger:     log,
	}
}

func (s *SafetyAlertService) Start(ctx context.Context) {
	err := s.subscriber.Subscribe(ctx, constant.EventTypeSafetyAlert, safetyAlertDurable, s.handleEvent)
	if err != nil {
		s.logger.Error("SafetyAlertService", "Failed to start safety alert subscriber", map[string]interface{}{"error": err.Error()})
		return
	}
	s.logger.Info("SafetyAlertService", "Listening for safety alerts", nil)
}

func (s *SafetyAlertService) handleEvent(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	s.logger.Warn("SafetyAlertService", "Safety alert received", map[string]interface{}{
		"session_id":  payload["session_id"],
		"user_id":     payload["user_id"],
		"run_id":      payload["run_id"],
		"risk_level":  payload["risk_level"],
		"occurred_at": event.Timestamp(),
	})
	return nil
}
