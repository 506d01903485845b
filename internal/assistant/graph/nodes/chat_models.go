package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/vayllon301/menteviva-backend/internal/assistant/model"
	logx "github.com/vayllon301/menteviva-backend/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation.
type ChatModelConfig struct {
	APIKey  string
	BaseURL string
	Config  *model.ChatModelConfig
}

// NewChatModel creates the Gemini response model.
func NewChatModel(ctx context.Context, cfg ChatModelConfig) (*gemini.ChatModel, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Config.Model,
		Temperature: &cfg.Config.Temperature,
		MaxTokens:   &cfg.Config.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating chat model")
		return nil, fmt.Errorf("error creating chat model: %w", err)
	}

	return cm, nil
}

// BindTools binds the registry's tool schemas to the chat model.
func BindTools(cm *gemini.ChatModel, infos []*schema.ToolInfo) error {
	if err := cm.BindTools(infos); err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools")
		return fmt.Errorf("failed to bind tools: %w", err)
	}
	logx.Debug().Int("tool_count", len(infos)).Msg("Successfully bound tools to chat model")
	return nil
}
