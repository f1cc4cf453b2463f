package response

import (
	"context"
	"errors"
	"testing"

	"ai-counselor-be/internal/entity"
	"ai-counselor-be/pkg/counsel/prompt"
	"ai-counselor-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatProvider struct {
	reply   string
	err     error
	history []llm.Message
}

func (p *chatProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	p.history = history
	return p.reply, p.err
}

func (p *chatProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func input() prompt.Input {
	return prompt.Input{Message: "hello", Analysis: entity.DefaultAnalysis(), Memory: entity.NewMemory()}
}

func TestGenerateTrimsReply(t *testing.T) {
	provider := &chatProvider{reply: "  I'm glad you reached out.\n"}

	got, err := NewLLMGenerator(provider).Generate(context.Background(), input())
	require.NoError(t, err)

	assert.Equal(t, "I'm glad you reached out.", got)
	require.NotEmpty(t, provider.history)
	assert.Equal(t, "hello", provider.history[len(provider.history)-1].Content)
}

func TestGenerateRejectsBlankReply(t *testing.T) {
	_, err := NewLLMGenerator(&chatProvider{reply: "   "}).Generate(context.Background(), input())
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestGenerateWrapsProviderError(t *testing.T) {
	boom := errors.New("503")
	_, err := NewLLMGenerator(&chatProvider{err: boom}).Generate(context.Background(), input())
	assert.ErrorIs(t, err, boom)
}
