package llm

import (
	"context"
	"fmt"

	"english_bot_backend/internal/config"
)

// NewProvider 按配置构造 Provider。mock 仅用于测试和本地联调。
func NewProvider(ctx context.Context, cfg config.AIConfig) (Provider, error) {
	switch cfg.Provider {
	case "gemini", "":
		return NewGeminiProvider(ctx, cfg.Gemini)
	case "openai":
		return NewOpenAIProvider(cfg.OpenAI)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}
