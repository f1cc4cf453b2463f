package risk

import "ai-counselor-be/internal/entity"

// Monitor decides whether an analysis warrants a safety alert.
type Monitor struct {
	Threshold int
}

func NewMonitor(threshold int) *Monitor {
	return &Monitor{Threshold: threshold}
}

// ShouldEscalate is strictly greater than the threshold.
func (m *Monitor) ShouldEscalate(analysis entity.Analysis) bool {
	return analysis.RiskLevel > m.Threshold
}
