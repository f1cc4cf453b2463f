package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ai-counselor-be/internal/entity"
	"ai-counselor-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWellFormed(t *testing.T) {
	got, err := Parse(`{"emotionalState":"Anxious","themes":["work"," Sleep ",""],"riskLevel":2,"recommendedApproach":"CBT"}`)
	require.NoError(t, err)

	assert.Equal(t, entity.Analysis{
		EmotionalState:      "anxious",
		Themes:              []string{"work", "sleep"},
		RiskLevel:           2,
		RecommendedApproach: "cbt",
	}, got)
}

func TestParseToleratesSurroundingProse(t *testing.T) {
	raw := "Sure! Here is the analysis:\n```json\n{\"emotionalState\":\"sad\",\"riskLevel\":\"5\"}\n```"

	got, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "sad", got.EmotionalState)
	assert.Equal(t, 5, got.RiskLevel)
	assert.Equal(t, "supportive", got.RecommendedApproach)
	assert.Empty(t, got.Themes)
}

func TestParseRiskLevelForms(t *testing.T) {
	cases := map[string]int{
		`{"emotionalState":"calm"}`:                   0,
		`{"emotionalState":"calm","riskLevel":null}`:  0,
		`{"emotionalState":"calm","riskLevel":4.0}`:   4,
		`{"emotionalState":"calm","riskLevel":" 7 "}`: 7,
	}
	for raw, want := range cases {
		got, err := Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got.RiskLevel, raw)
	}
}

func TestParseMalformed(t *testing.T) {
	cases := []string{
		"",
		"I cannot help with that.",
		`{"themes":["work"],"riskLevel":1}`,
		`{"emotionalState":"  "}`,
		`{"emotionalState":"sad","riskLevel":-1}`,
		`{"emotionalState":"sad","riskLevel":2.5}`,
		`{"emotionalState":"sad","riskLevel":"high"}`,
		`{"emotionalState":"sad","riskLevel":true}`,
		`{"emotionalState":"sad",`,
	}
	for _, raw := range cases {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, ErrMalformedAnalysis, raw)
	}
}

type scriptedProvider struct {
	reply  string
	err    error
	prompt string
	opts   llm.Options
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return p.Generate(ctx, history[len(history)-1].Content, opts...)
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	p.prompt = prompt
	p.opts = *llm.Apply(llm.Options{}, opts...)
	return p.reply, p.err
}

func TestLLMAnalyzerRequestsJSON(t *testing.T) {
	provider := &scriptedProvider{reply: `{"emotionalState":"anxious","themes":["work"],"riskLevel":2,"recommendedApproach":"supportive"}`}
	analyzer := NewLLMAnalyzer(provider, "qwen2.5")

	got, err := analyzer.Analyze(context.Background(), "I feel anxious about work")
	require.NoError(t, err)

	assert.Equal(t, 2, got.RiskLevel)
	assert.True(t, provider.opts.JSONMode)
	assert.Equal(t, "qwen2.5", provider.opts.Model)
	assert.True(t, strings.Contains(provider.prompt, `"I feel anxious about work"`))
}

func TestLLMAnalyzerPropagatesProviderError(t *testing.T) {
	boom := errors.New("timeout")
	analyzer := NewLLMAnalyzer(&scriptedProvider{err: boom}, "")

	_, err := analyzer.Analyze(context.Background(), "hello")
	assert.ErrorIs(t, err, boom)
}
