package risk

import (
	"testing"

	"ai-counselor-be/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestShouldEscalate(t *testing.T) {
	m := NewMonitor(4)

	cases := []struct {
		level int
		want  bool
	}{
		{0, false},
		{4, false},
		{5, true},
		{10, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, m.ShouldEscalate(entity.Analysis{RiskLevel: tc.level}), "risk level %d", tc.level)
	}
}
