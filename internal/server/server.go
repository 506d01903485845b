// Package server exposes the assistant over HTTP with gin. All endpoints
// speak JSON; failures come back as {"error": msg} with a matching status.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vayllon301/menteviva-backend/internal/adapters/news"
	"github.com/vayllon301/menteviva-backend/internal/adapters/newspapers"
	"github.com/vayllon301/menteviva-backend/internal/adapters/quote"
	"github.com/vayllon301/menteviva-backend/internal/adapters/voice"
	"github.com/vayllon301/menteviva-backend/internal/adapters/weather"
	"github.com/vayllon301/menteviva-backend/internal/assistant/model"
	"github.com/vayllon301/menteviva-backend/internal/core"
	"github.com/vayllon301/menteviva-backend/internal/core/errx"
	logx "github.com/vayllon301/menteviva-backend/pkg/logger"
)

// Config holds HTTP listener settings.
type Config struct {
	Port         string `envconfig:"PORT" default:"8080"`
	Environment  string `envconfig:"ENVIRONMENT" default:"development"`
	MaxAudioSize int64  `envconfig:"MAX_AUDIO_SIZE_BYTES" default:"10485760"`
}

// ChatRunner runs one conversation-loop invocation. Respond makes it
// usable as the voice pipeline's responder.
type ChatRunner interface {
	Invoke(ctx context.Context, in model.ChatInput) (string, error)
	Respond(ctx context.Context, text string) (string, error)
}

// VoiceProcessor runs the full voice round trip.
type VoiceProcessor interface {
	Process(ctx context.Context, audio []byte, voiceName string, respond voice.Responder) ([]byte, string, string, error)
}

// QuoteGenerator produces motivational quotes for a topic.
type QuoteGenerator interface {
	Generate(ctx context.Context, description string, interests []string) (*quote.Response, error)
}

// CVAsker answers questions against the CV assistant thread.
type CVAsker interface {
	Ask(ctx context.Context, message string) (string, error)
}

// WeatherSource, NewsSource and NewspaperSource mirror the adapter
// read operations exposed as raw endpoints.
type WeatherSource interface {
	Current(ctx context.Context, city, country string) *weather.Result
}

type NewsSource interface {
	TopHeadlines(ctx context.Context, limit int) *news.Result
}

type NewspaperSource interface {
	Headlines(ctx context.Context, source string, limit int) *newspapers.Result
}

// Deps collects everything the handlers call into. Nil fields disable
// their endpoints with a 503.
type Deps struct {
	Runner     ChatRunner
	Voice      VoiceProcessor
	Quotes     QuoteGenerator
	CV         CVAsker
	Weather    WeatherSource
	News       NewsSource
	Newspapers NewspaperSource
}

// Server wires the gin engine with the assistant dependencies.
type Server struct {
	cfg    Config
	deps   Deps
	engine *gin.Engine
}

// New builds the server and registers all routes.
func New(cfg Config, deps Deps) *Server {
	if core.ParseEnvironment(cfg.Environment).IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{cfg: cfg, deps: deps}
	engine := gin.New()
	engine.Use(gin.Recovery(), requestID())
	s.register(engine)
	s.engine = engine
	return s
}

// Engine exposes the underlying gin engine for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP listener and blocks until it fails or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logx.Info().Str("port", s.cfg.Port).Msg("HTTP server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) register(engine *gin.Engine) {
	engine.GET("/", s.handleHealth)
	engine.GET("/health", s.handleHealth)

	engine.POST("/chat", s.handleChat)
	engine.POST("/voice", s.handleVoice)
	engine.POST("/quote", s.handleQuote)
	engine.POST("/cv-assistant", s.handleCVAssistant)

	engine.GET("/news", s.handleNews)
	engine.GET("/weather", s.handleWeather)
	engine.GET("/newspapers", s.handleNewspapers)
}

// requestID tags every request with an id for log correlation.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// abortError writes the JSON error envelope. AppError carries its own
// status and user-safe message; anything else is a generic 500.
func abortError(c *gin.Context, err error) {
	var appErr *errx.AppError
	if errors.As(err, &appErr) {
		c.AbortWithStatusJSON(appErr.Status, gin.H{"error": appErr.Message})
		return
	}
	logx.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errx.SystemErrorMessage})
}
