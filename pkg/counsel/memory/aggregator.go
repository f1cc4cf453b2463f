// Package memory folds per-message analyses into the running session memory.
package memory

import (
	"strings"

	"ai-counselor-be/internal/entity"
)

// ApplyAnalysis returns a new memory with the analysis folded in. The input is not mutated.
//
// The emotional state is appended when non-empty, every theme is appended in order, and the
// risk level is overwritten only by a non-zero reading so a calm message does not erase an
// earlier concern.
func ApplyAnalysis(current entity.Memory, analysis entity.Analysis) entity.Memory {
	next := current.Clone()

	if state := strings.TrimSpace(analysis.EmotionalState); state != "" {
		next.UserProfile.EmotionalState = append(next.UserProfile.EmotionalState, state)
	}

	next.SessionContext.ConversationThemes = append(next.SessionContext.ConversationThemes, analysis.Themes...)

	if analysis.RiskLevel != 0 {
		next.UserProfile.RiskLevel = analysis.RiskLevel
	}

	return next
}
