package factory

import (
	"context"
	"fmt"

	"ai-counselor-be/internal/config"
	"ai-counselor-be/pkg/llm"
	"ai-counselor-be/pkg/llm/ark"
	"ai-counselor-be/pkg/llm/huggingface"
	"ai-counselor-be/pkg/llm/ollama"
)

func NewLLMProvider(ctx context.Context, cfg config.AIConfig) (llm.LLMProvider, error) {
	switch cfg.LLMProvider {
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.LLMModel), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(cfg.HuggingFaceKey, cfg.HuggingFaceBaseURL, cfg.LLMModel), nil
	case "ark":
		return ark.NewArkProvider(ctx, cfg.ArkAPIKey, cfg.ArkBaseURL, cfg.LLMModel)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}
