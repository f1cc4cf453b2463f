package analysis

import (
	"context"
	"fmt"

	"ai-counselor-be/internal/constant"
	"ai-counselor-be/internal/entity"
	"ai-counselor-be/pkg/llm"
)

// Analyzer reads the emotional content and risk of one message.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (entity.Analysis, error)
}

// LLMAnalyzer asks a language model for a JSON verdict and validates it.
type LLMAnalyzer struct {
	provider llm.LLMProvider
	model    string
}

var _ Analyzer = (*LLMAnalyzer)(nil)

// NewLLMAnalyzer uses the provider's default model when model is empty.
func NewLLMAnalyzer(provider llm.LLMProvider, model string) *LLMAnalyzer {
	return &LLMAnalyzer{provider: provider, model: model}
}

func (a *LLMAnalyzer) Analyze(ctx context.Context, text string) (entity.Analysis, error) {
	opts := []llm.Option{
		llm.WithTemperature(0.1),
		llm.WithMaxTokens(300),
		llm.WithJSONMode(),
	}
	if a.model != "" {
		opts = append(opts, llm.WithModel(a.model))
	}

	raw, err := a.provider.Generate(ctx, fmt.Sprintf(constant.AnalysisPromptV1, text), opts...)
	if err != nil {
		return entity.Analysis{}, fmt.Errorf("analysis request: %w", err)
	}
	return Parse(raw)
}
