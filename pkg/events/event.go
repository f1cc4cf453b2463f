package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is what travels over the broker: a type code, a flat JSON payload and the time it happened.
type Event interface {
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

// TimestampKey is the payload field that carries the occurrence time on the wire.
const TimestampKey = "timestamp"

type record struct {
	eventType  string
	payload    map[string]interface{}
	occurredAt time.Time
}

// New builds an Event. The occurrence time is also written into the payload as RFC3339
// so consumers can recover it.
func New(eventType string, payload map[string]interface{}, occurredAt time.Time) Event {
	data := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		data[k] = v
	}
	data[TimestampKey] = occurredAt.UTC().Format(time.RFC3339Nano)

	return record{eventType: eventType, payload: data, occurredAt: occurredAt}
}

func (r record) EventType() string               { return r.eventType }
func (r record) Payload() map[string]interface{} { return r.payload }
func (r record) Timestamp() time.Time            { return r.occurredAt }

// Decode rebuilds an Event from its wire payload. A missing or unparsable timestamp
// falls back to the receive time.
func Decode(eventType string, data []byte) (Event, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
	}

	occurredAt := time.Now()
	if ts, ok := payload[TimestampKey].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			occurredAt = parsed
		}
	}

	return record{eventType: eventType, payload: payload, occurredAt: occurredAt}, nil
}
