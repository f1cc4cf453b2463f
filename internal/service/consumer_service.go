package service

import (
	"context"
	"encoding/json"
	"log"

	"ai-counselor-be/pkg/counsel/pipeline"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// SessionWaker starts draining a session's queued runs.
type SessionWaker interface {
	Wake(sessionId uuid.UUID)
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	waker      SessionWaker
}

func NewConsumerService(subscriber message.Subscriber, topicName string, waker SessionWaker) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		waker:      waker,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

// processMessage only wakes the lane. The lane reads the queue from the database, so a lost
// or duplicated event never loses or repeats a run.
func (cs *consumerService) processMessage(msg *message.Message) {
	var event pipeline.MessageSubmitted
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		log.Printf("[ERROR] Failed to unmarshal message-submitted event: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}
	if event.SessionId == uuid.Nil {
		log.Printf("[WARN] Dropping message-submitted event %s without session", msg.UUID)
		msg.Ack()
		return
	}

	cs.waker.Wake(event.SessionId)
	msg.Ack()
}
