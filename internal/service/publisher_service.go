package service

import (
	"context"
	"encoding/json"

	"ai-counselor-be/pkg/counsel/pipeline"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisherService interface {
	Publish(ctx context.Context, payload []byte) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
}

func NewPublisherService(topicName string, publisher message.Publisher) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
	}
}

func (ps *publisherService) Publish(ctx context.Context, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return ps.publisher.Publish(ps.topicName, msg)
}

// submitDispatcher puts message-submitted events on the bus the consumer listens to.
type submitDispatcher struct {
	publisher IPublisherService
}

func NewSubmitDispatcher(publisher IPublisherService) pipeline.Dispatcher {
	return &submitDispatcher{publisher: publisher}
}

func (d *submitDispatcher) Dispatch(ctx context.Context, event pipeline.MessageSubmitted) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return d.publisher.Publish(ctx, payload)
}
