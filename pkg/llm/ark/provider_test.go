package ark

import (
	"context"
	"errors"
	"testing"

	"ai-counselor-be/pkg/llm"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatModel struct {
	input []*schema.Message
	opts  *model.Options
	reply *schema.Message
	err   error
}

func (m *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.input = input
	m.opts = model.GetCommonOptions(&model.Options{}, opts...)
	return m.reply, m.err
}

func (m *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func (m *fakeChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

func TestChatMapsRoles(t *testing.T) {
	fake := &fakeChatModel{reply: schema.AssistantMessage("take a breath", nil)}
	p := NewFromChatModel(fake)

	reply, err := p.Chat(context.Background(), []llm.Message{
		{Role: "system", Content: "be kind"},
		{Role: "user", Content: "I'm anxious"},
		{Role: "assistant", Content: "tell me more"},
		{Role: "tool", Content: "unknown roles become user turns"},
	})

	require.NoError(t, err)
	assert.Equal(t, "take a breath", reply)
	require.Len(t, fake.input, 4)
	assert.Equal(t, schema.System, fake.input[0].Role)
	assert.Equal(t, schema.User, fake.input[1].Role)
	assert.Equal(t, schema.Assistant, fake.input[2].Role)
	assert.Equal(t, "tell me more", fake.input[2].Content)
	assert.Equal(t, schema.User, fake.input[3].Role)
}

func TestChatForwardsOptions(t *testing.T) {
	fake := &fakeChatModel{reply: schema.AssistantMessage("ok", nil)}
	p := NewFromChatModel(fake)

	_, err := p.Generate(context.Background(), "hi",
		llm.WithTemperature(0.2), llm.WithMaxTokens(128), llm.WithModel("doubao-pro"))

	require.NoError(t, err)
	require.NotNil(t, fake.opts.Temperature)
	assert.InDelta(t, 0.2, *fake.opts.Temperature, 1e-6)
	require.NotNil(t, fake.opts.MaxTokens)
	assert.Equal(t, 128, *fake.opts.MaxTokens)
	require.NotNil(t, fake.opts.Model)
	assert.Equal(t, "doubao-pro", *fake.opts.Model)
}

func TestChatWithoutOptionsSendsNone(t *testing.T) {
	fake := &fakeChatModel{reply: schema.AssistantMessage("ok", nil)}

	_, err := NewFromChatModel(fake).Generate(context.Background(), "hi")

	require.NoError(t, err)
	assert.Nil(t, fake.opts.Temperature)
	assert.Nil(t, fake.opts.MaxTokens)
	assert.Nil(t, fake.opts.Model)
}

func TestChatErrors(t *testing.T) {
	_, err := NewFromChatModel(&fakeChatModel{err: errors.New("quota exceeded")}).Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	_, err = NewFromChatModel(&fakeChatModel{}).Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty message")
}

func TestNewArkProviderRequiresCredentials(t *testing.T) {
	_, err := NewArkProvider(context.Background(), "", "", "doubao-pro")
	assert.Error(t, err)
}
