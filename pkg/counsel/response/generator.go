package response

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ai-counselor-be/pkg/counsel/prompt"
	"ai-counselor-be/pkg/llm"
)

var ErrEmptyReply = errors.New("empty reply from model")

// Generator produces the counselor's reply for one turn.
type Generator interface {
	Generate(ctx context.Context, in prompt.Input) (string, error)
}

type LLMGenerator struct {
	provider    llm.LLMProvider
	temperature float64
	maxTokens   int
}

var _ Generator = (*LLMGenerator)(nil)

func NewLLMGenerator(provider llm.LLMProvider) *LLMGenerator {
	return &LLMGenerator{
		provider:    provider,
		temperature: 0.7,
		maxTokens:   400,
	}
}

func (g *LLMGenerator) Generate(ctx context.Context, in prompt.Input) (string, error) {
	reply, err := g.provider.Chat(ctx, prompt.Build(in),
		llm.WithTemperature(g.temperature),
		llm.WithMaxTokens(g.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("response request: %w", err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}
