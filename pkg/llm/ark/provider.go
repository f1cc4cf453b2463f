package ark

import (
	"context"
	"fmt"

	"ai-counselor-be/pkg/llm"

	arkmodel "github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ArkProvider adapts an eino ChatModel backed by Volcengine Ark.
type ArkProvider struct {
	chatModel model.ChatModel
}

var _ llm.LLMProvider = &ArkProvider{}

func NewArkProvider(ctx context.Context, apiKey, baseURL, modelName string) (*ArkProvider, error) {
	if apiKey == "" || modelName == "" {
		return nil, fmt.Errorf("ark provider requires ARK_API_KEY and LLM_MODEL")
	}

	chatModel, err := arkmodel.NewChatModel(ctx, &arkmodel.ChatModelConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   modelName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ark chat model: %w", err)
	}

	return NewFromChatModel(chatModel), nil
}

// NewFromChatModel wraps any eino ChatModel.
func NewFromChatModel(chatModel model.ChatModel) *ArkProvider {
	return &ArkProvider{chatModel: chatModel}
}

func (p *ArkProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.Apply(llm.Options{}, options...)

	messages := make([]*schema.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case "system":
			messages = append(messages, schema.SystemMessage(msg.Content))
		case "assistant":
			messages = append(messages, schema.AssistantMessage(msg.Content, nil))
		default:
			messages = append(messages, schema.UserMessage(msg.Content))
		}
	}

	var modelOpts []model.Option
	if opts.Temperature > 0 {
		modelOpts = append(modelOpts, model.WithTemperature(float32(opts.Temperature)))
	}
	if opts.MaxTokens > 0 {
		modelOpts = append(modelOpts, model.WithMaxTokens(opts.MaxTokens))
	}
	if opts.Model != "" {
		modelOpts = append(modelOpts, model.WithModel(opts.Model))
	}

	resp, err := p.chatModel.Generate(ctx, messages, modelOpts...)
	if err != nil {
		return "", fmt.Errorf("ark generate failed: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("ark returned empty message")
	}
	return resp.Content, nil
}

func (p *ArkProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}
