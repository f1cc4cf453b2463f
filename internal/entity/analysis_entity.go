package entity

import "ai-counselor-be/internal/constant"

// Analysis is the emotional and risk reading of one user message.
type Analysis struct {
	EmotionalState      string   `json:"emotionalState"`
	Themes              []string `json:"themes"`
	RiskLevel           int      `json:"riskLevel"`
	RecommendedApproach string   `json:"recommendedApproach"`
}

// DefaultAnalysis substitutes for a failed or malformed analysis.
func DefaultAnalysis() Analysis {
	return Analysis{
		EmotionalState:      constant.DefaultEmotionalState,
		Themes:              []string{},
		RiskLevel:           0,
		RecommendedApproach: constant.DefaultRecommendedApproach,
	}
}

func (a Analysis) Progress() *Progress {
	return &Progress{
		EmotionalState: a.EmotionalState,
		RiskLevel:      a.RiskLevel,
	}
}
