package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id             uuid.UUID
	ChatSessionId  uuid.UUID
	Turn           int
	Sequence       int
	Role           string
	Content        string
	Timestamp      time.Time
	IdempotencyKey string
	Metadata       *MessageMetadata // Assistant messages only
}

type MessageMetadata struct {
	Analysis  *Analysis `json:"analysis,omitempty"`
	Progress  *Progress `json:"progress,omitempty"`
	Technique string    `json:"technique,omitempty"`
	Goal      string    `json:"goal,omitempty"`
}

type Progress struct {
	EmotionalState string `json:"emotionalState"`
	RiskLevel      int    `json:"riskLevel"`
}

// MessageKey identifies one half of a turn, "{sessionId}:{turn}:{role}".
func MessageKey(sessionId uuid.UUID, turn int, role string) string {
	return fmt.Sprintf("%s:%d:%s", sessionId, turn, role)
}

// MessageSequence orders the user half before the assistant half of the same turn.
func MessageSequence(turn int, assistant bool) int {
	if assistant {
		return turn*2 + 1
	}
	return turn * 2
}
