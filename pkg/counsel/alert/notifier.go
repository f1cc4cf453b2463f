package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-counselor-be/internal/constant"
	"ai-counselor-be/internal/pkg/logger"
	"ai-counselor-be/internal/pkg/mailer"
	"ai-counselor-be/pkg/events"
)

// SafetyAlert is emitted once per message whose risk exceeds the escalation threshold.
type SafetyAlert struct {
	SessionId string    `json:"session_id"`
	UserId    string    `json:"user_id"`
	RunId     string    `json:"run_id"`
	Message   string    `json:"message"`
	RiskLevel int       `json:"risk_level"`
	Timestamp time.Time `json:"timestamp"`
}

// Event adapts the alert to the event bus contract.
func (a SafetyAlert) Event() events.Event {
	return events.New(constant.EventTypeSafetyAlert, map[string]interface{}{
		"session_id": a.SessionId,
		"user_id":    a.UserId,
		"run_id":     a.RunId,
		"message":    a.Message,
		"risk_level": a.RiskLevel,
	}, a.Timestamp)
}

// Notifier delivers a safety alert. key is stable per message so receivers can drop duplicates.
type Notifier interface {
	Notify(ctx context.Context, key string, alert SafetyAlert) error
}

type EventPublisher interface {
	PublishWithID(ctx context.Context, event events.Event, msgID string) error
}

// NatsNotifier publishes to the SAFETY_ALERT subject with the key as Nats-Msg-Id.
type NatsNotifier struct {
	publisher EventPublisher
}

func NewNatsNotifier(publisher EventPublisher) *NatsNotifier {
	return &NatsNotifier{publisher: publisher}
}

func (n *NatsNotifier) Notify(ctx context.Context, key string, alert SafetyAlert) error {
	if err := n.publisher.PublishWithID(ctx, alert.Event(), key); err != nil {
		return fmt.Errorf("publish safety alert: %w", err)
	}
	return nil
}

// MailNotifier emails the on-call counselor. Mail has no dedupe, a retried send may arrive twice.
type MailNotifier struct {
	mailer mailer.IEmailService
	to     string
}

func NewMailNotifier(m mailer.IEmailService, to string) *MailNotifier {
	return &MailNotifier{mailer: m, to: to}
}

func (n *MailNotifier) Notify(ctx context.Context, key string, alert SafetyAlert) error {
	done := make(chan error, 1)
	go func() {
		done <- n.mailer.SendSafetyAlert(n.to, mailer.SafetyAlertMail{
			SessionId: alert.SessionId,
			UserId:    alert.UserId,
			RunId:     alert.RunId,
			Message:   alert.Message,
			RiskLevel: alert.RiskLevel,
			Timestamp: alert.Timestamp,
		})
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogNotifier records every alert in the application log.
type LogNotifier struct {
	logger logger.ILogger
}

func NewLogNotifier(l logger.ILogger) *LogNotifier {
	return &LogNotifier{logger: l}
}

func (n *LogNotifier) Notify(ctx context.Context, key string, alert SafetyAlert) error {
	n.logger.Warn("SAFETY", "Safety alert raised", map[string]interface{}{
		"key":        key,
		"session_id": alert.SessionId,
		"run_id":     alert.RunId,
		"risk_level": alert.RiskLevel,
	})
	return nil
}

// MultiNotifier fans out to every notifier and joins their errors.
type MultiNotifier struct {
	notifiers []Notifier
}

func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

func (m *MultiNotifier) Notify(ctx context.Context, key string, alert SafetyAlert) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, key, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
