package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStampsPayloadWithoutMutatingInput(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	in := map[string]interface{}{"risk_level": 7}

	event := New("SAFETY_ALERT", in, at)

	assert.Equal(t, "SAFETY_ALERT", event.EventType())
	assert.Equal(t, "2026-03-04T05:06:07Z", event.Payload()[TimestampKey])
	assert.NotContains(t, in, TimestampKey)
}

func TestDecodeRoundTripsTimestamp(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	data, err := json.Marshal(New("SAFETY_ALERT", map[string]interface{}{"session_id": "s1"}, at).Payload())
	require.NoError(t, err)

	event, err := Decode("SAFETY_ALERT", data)
	require.NoError(t, err)
	assert.Equal(t, "s1", event.Payload()["session_id"])
	assert.True(t, at.Equal(event.Timestamp()))
}
