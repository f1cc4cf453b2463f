package memory

import (
	"testing"

	"ai-counselor-be/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestApplyAnalysisAppendsStateAndThemes(t *testing.T) {
	start := entity.NewMemory()

	got := ApplyAnalysis(start, entity.Analysis{
		EmotionalState: "anxious",
		Themes:         []string{"work", "sleep"},
		RiskLevel:      2,
	})

	assert.Equal(t, []string{"anxious"}, got.UserProfile.EmotionalState)
	assert.Equal(t, []string{"work", "sleep"}, got.SessionContext.ConversationThemes)
	assert.Equal(t, 2, got.UserProfile.RiskLevel)
}

func TestApplyAnalysisDoesNotMutateInput(t *testing.T) {
	start := entity.NewMemory()
	start.UserProfile.EmotionalState = append(make([]string, 0, 8), "sad")
	start.SessionContext.ConversationThemes = append(make([]string, 0, 8), "family")

	_ = ApplyAnalysis(start, entity.Analysis{EmotionalState: "angry", Themes: []string{"work"}, RiskLevel: 6})

	assert.Equal(t, []string{"sad"}, start.UserProfile.EmotionalState)
	assert.Equal(t, []string{"family"}, start.SessionContext.ConversationThemes)
	assert.Equal(t, 0, start.UserProfile.RiskLevel)
	// Spare capacity must not have been written through.
	full := start.UserProfile.EmotionalState[:cap(start.UserProfile.EmotionalState)]
	assert.Equal(t, "", full[1])
}

func TestApplyAnalysisKeepsRiskOnZeroReading(t *testing.T) {
	start := entity.NewMemory()
	start.UserProfile.RiskLevel = 7

	got := ApplyAnalysis(start, entity.Analysis{EmotionalState: "calm", RiskLevel: 0})

	assert.Equal(t, 7, got.UserProfile.RiskLevel)
}

func TestApplyAnalysisSkipsBlankState(t *testing.T) {
	got := ApplyAnalysis(entity.NewMemory(), entity.Analysis{EmotionalState: "  ", Themes: nil})

	assert.Empty(t, got.UserProfile.EmotionalState)
	assert.Empty(t, got.SessionContext.ConversationThemes)
}

func TestApplyAnalysisIsDeterministic(t *testing.T) {
	start := entity.NewMemory()
	a := entity.Analysis{EmotionalState: "hopeful", Themes: []string{"friends"}, RiskLevel: 1}

	assert.Equal(t, ApplyAnalysis(start, a), ApplyAnalysis(start, a))
}

func TestApplyAnalysisAccumulatesAcrossTurns(t *testing.T) {
	m := entity.NewMemory()
	m = ApplyAnalysis(m, entity.Analysis{EmotionalState: "anxious", Themes: []string{"work"}, RiskLevel: 3})
	m = ApplyAnalysis(m, entity.Analysis{EmotionalState: "sad", Themes: []string{"work", "family"}, RiskLevel: 0})

	assert.Equal(t, []string{"anxious", "sad"}, m.UserProfile.EmotionalState)
	assert.Equal(t, []string{"work", "work", "family"}, m.SessionContext.ConversationThemes)
	assert.Equal(t, 3, m.UserProfile.RiskLevel)
}
