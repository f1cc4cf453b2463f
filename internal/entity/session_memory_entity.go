package entity

import (
	"time"

	"github.com/google/uuid"
)

// Memory accumulates across the turns of one session.
type Memory struct {
	UserProfile    UserProfile    `json:"userProfile"`
	SessionContext SessionContext `json:"sessionContext"`
}

type UserProfile struct {
	EmotionalState []string `json:"emotionalState"`
	RiskLevel      int      `json:"riskLevel"`
}

type SessionContext struct {
	ConversationThemes []string `json:"conversationThemes"`
}

func NewMemory() Memory {
	return Memory{
		UserProfile:    UserProfile{EmotionalState: []string{}},
		SessionContext: SessionContext{ConversationThemes: []string{}},
	}
}

// Clone returns a deep copy so callers never share backing arrays.
func (m Memory) Clone() Memory {
	out := NewMemory()
	out.UserProfile.EmotionalState = append(out.UserProfile.EmotionalState, m.UserProfile.EmotionalState...)
	out.UserProfile.RiskLevel = m.UserProfile.RiskLevel
	out.SessionContext.ConversationThemes = append(out.SessionContext.ConversationThemes, m.SessionContext.ConversationThemes...)
	return out
}

// SessionMemory is the stored memory row of a session.
type SessionMemory struct {
	ChatSessionId uuid.UUID
	UserId        uuid.UUID
	Memory        Memory
	LastTurn      int // Last turn whose analysis is folded in
	UpdatedAt     time.Time
}
