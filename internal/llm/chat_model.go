package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"fairytale/internal/config"
)

// NewChatModel 按TEXT_PROVIDER创建聊天模型
func NewChatModel(ctx context.Context, cfg *config.Config) (model.BaseChatModel, error) {
	httpClient := &http.Client{Timeout: cfg.TextTimeout}

	switch cfg.TextProvider {
	case config.ProviderArk:
		chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			APIKey:     cfg.ArkAPIKey,
			BaseURL:    cfg.ArkBaseURL + "/api/v3",
			HTTPClient: httpClient,
			Model:      cfg.ArkChatModel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create ark chat model: %w", err)
		}
		return chatModel, nil
	default:
		chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			HTTPClient: httpClient,
			Model:      cfg.StoryModel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create openai chat model: %w", err)
		}
		return chatModel, nil
	}
}
