package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	openai "github.com/sashabaranov/go-openai"

	"github.com/vayllon301/menteviva-backend/internal/adapters/alert"
	"github.com/vayllon301/menteviva-backend/internal/adapters/cvassistant"
	"github.com/vayllon301/menteviva-backend/internal/adapters/news"
	"github.com/vayllon301/menteviva-backend/internal/adapters/newspapers"
	"github.com/vayllon301/menteviva-backend/internal/adapters/quote"
	"github.com/vayllon301/menteviva-backend/internal/adapters/voice"
	"github.com/vayllon301/menteviva-backend/internal/adapters/weather"
	"github.com/vayllon301/menteviva-backend/internal/assistant/graph"
	"github.com/vayllon301/menteviva-backend/internal/assistant/model"
	"github.com/vayllon301/menteviva-backend/internal/assistant/tools"
	"github.com/vayllon301/menteviva-backend/internal/cache"
	"github.com/vayllon301/menteviva-backend/internal/core"
	"github.com/vayllon301/menteviva-backend/internal/server"
	logx "github.com/vayllon301/menteviva-backend/pkg/logger"
	pkgredis "github.com/vayllon301/menteviva-backend/pkg/redis"
)

// AppConfig defines all configurable parameters for the assistant backend,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	// Infrastructure
	Server server.Config
	Redis  pkgredis.Config
	Cache  cache.Config

	// LLM providers
	APIKey    string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL   string `envconfig:"GEMINI_BASE_URL"`
	OpenAIKey string `envconfig:"OPENAI_API_KEY"`

	// Assistant configs
	ChatModel    model.ChatModelConfig
	Prompt       model.PromptConfig
	Conversation model.ConversationConfig
	Toolset      model.ToolsetConfig

	// Adapters
	Weather    weather.Config
	News       news.Config
	Newspapers newspapers.Config
	Alert      alert.Config
	Voice      voice.Config
	Quote      quote.Config
	CV         cvassistant.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	env := core.ParseEnvironment(cfg.Server.Environment)
	logx.Init(logx.LoggerOpts{Environment: env})

	// Optional Redis: without it the upstream cache degrades to a no-op.
	var store cache.Store = cache.Noop{}
	if cfg.Redis.Enabled() {
		rdb, err := cfg.Redis.New()
		if err != nil {
			logx.Fatal().Err(err).Msg("Failed to initialise Redis client")
		}
		defer rdb.Close()

		ttl, err := time.ParseDuration(cfg.Cache.TTL)
		if err != nil {
			logx.Fatal().Str("ttl", cfg.Cache.TTL).Err(err).Msg("Invalid CACHE_TTL")
		}
		store = cache.NewRedisStore(rdb, ttl)
		logx.Info().Msg("Connected to Redis, upstream cache enabled")
	}

	weatherClient := weather.New(cfg.Weather, store)
	newsClient := news.New(cfg.News, store)
	newspapersClient := newspapers.New(cfg.Newspapers, store)
	alertClient := alert.New(cfg.Alert)

	runner, err := graph.BuildAssistantGraph(ctx, graph.Config{
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		ChatModel:    cfg.ChatModel,
		Prompt:       cfg.Prompt,
		Conversation: cfg.Conversation,
		Toolset:      cfg.Toolset,
		ToolDeps: tools.Deps{
			Weather:    weatherClient,
			News:       newsClient,
			Newspapers: newspapersClient,
			Alert:      alertClient,
		},
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build assistant graph")
	}

	deps := server.Deps{
		Runner:     runner,
		Weather:    weatherClient,
		News:       newsClient,
		Newspapers: newspapersClient,
	}

	// Voice, quotes and the CV assistant all ride on the OpenAI API; leave
	// their endpoints unconfigured when the key is absent.
	if cfg.OpenAIKey != "" {
		oa := openai.NewClient(cfg.OpenAIKey)
		deps.Voice = voice.New(cfg.Voice, oa)
		deps.Quotes = quote.New(cfg.Quote, oa)
		deps.CV = cvassistant.New(cfg.CV, oa)
	} else {
		logx.Warn().Msg("OPENAI_API_KEY not set, voice, quote and CV endpoints disabled")
	}

	srv := server.New(cfg.Server, deps)
	if err := srv.Run(ctx); err != nil {
		logx.Fatal().Err(err).Msg("HTTP server failed")
	}
	logx.Info().Msg("Server stopped")
}
