package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"ai-counselor-be/pkg/counsel/pipeline"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWaker struct {
	mu    sync.Mutex
	woken []uuid.UUID
}

func (w *recordingWaker) Wake(sessionId uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.woken = append(w.woken, sessionId)
}

func (w *recordingWaker) Woken() []uuid.UUID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]uuid.UUID(nil), w.woken...)
}

func TestDispatchedEventWakesSessionLane(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	waker := &recordingWaker{}
	require.NoError(t, NewConsumerService(pubSub, "submitted", waker).Consume(ctx))

	sessionId := uuid.New()
	dispatcher := NewSubmitDispatcher(NewPublisherService("submitted", pubSub))
	require.NoError(t, dispatcher.Dispatch(ctx, pipeline.MessageSubmitted{
		RunId:     uuid.New(),
		SessionId: sessionId,
		Turn:      1,
		Text:      "hello",
	}))

	assert.Eventually(t, func() bool {
		woken := waker.Woken()
		return len(woken) == 1 && woken[0] == sessionId
	}, time.Second, 10*time.Millisecond)
}

func TestUndecodableEventIsAcked(t *testing.T) {
	waker := &recordingWaker{}
	cs := &consumerService{waker: waker}

	msg := message.NewMessage(watermill.NewUUID(), []byte("{not json"))
	cs.processMessage(msg)

	select {
	case <-msg.Acked():
	default:
		t.Fatal("message was not acked")
	}
	assert.Empty(t, waker.Woken())

	payload, err := json.Marshal(pipeline.MessageSubmitted{RunId: uuid.New()})
	require.NoError(t, err)
	msg = message.NewMessage(watermill.NewUUID(), payload)
	cs.processMessage(msg)
	<-msg.Acked()
	assert.Empty(t, waker.Woken())
}
