// Package cvassistant talks to a pre-configured OpenAI Assistant ("Blanca")
// that answers CV and paperwork questions. Each call runs a fresh thread:
// create, post the user message, run, poll, read the reply.
package cvassistant

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	logx "github.com/vayllon301/menteviva-backend/pkg/logger"
)

type Config struct {
	AssistantID  string `envconfig:"CV_ASSISTANT_ID"`
	PollInterval string `envconfig:"CV_ASSISTANT_POLL_INTERVAL" default:"500ms"`
}

// threadAPI is the slice of the OpenAI client the assistant needs;
// *openai.Client satisfies it.
type threadAPI interface {
	CreateThread(ctx context.Context, request openai.ThreadRequest) (openai.Thread, error)
	CreateMessage(ctx context.Context, threadID string, request openai.MessageRequest) (openai.Message, error)
	CreateRun(ctx context.Context, threadID string, request openai.RunRequest) (openai.Run, error)
	RetrieveRun(ctx context.Context, threadID string, runID string) (openai.Run, error)
	ListMessage(ctx context.Context, threadID string, limit *int, order *string, after *string, before *string, runID *string) (openai.MessagesList, error)
}

type Client struct {
	cfg          Config
	api          threadAPI
	pollInterval time.Duration
}

func New(cfg Config, api threadAPI) *Client {
	interval, err := time.ParseDuration(cfg.PollInterval)
	if err != nil || interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Client{cfg: cfg, api: api, pollInterval: interval}
}

// Ask sends one message to the assistant and waits for its reply. Errors
// propagate to the HTTP boundary; this adapter has no error-as-data
// contract because it is not exposed to the conversation loop.
func (c *Client) Ask(ctx context.Context, message string) (string, error) {
	if c.cfg.AssistantID == "" {
		return "", fmt.Errorf("CV_ASSISTANT_ID is not configured")
	}

	thread, err := c.api.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}

	if _, err := c.api.CreateMessage(ctx, thread.ID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	}); err != nil {
		return "", fmt.Errorf("post message: %w", err)
	}

	run, err := c.api.CreateRun(ctx, thread.ID, openai.RunRequest{AssistantID: c.cfg.AssistantID})
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}

	for run.Status != openai.RunStatusCompleted {
		switch run.Status {
		case openai.RunStatusFailed, openai.RunStatusCancelled, openai.RunStatusExpired:
			return "", fmt.Errorf("assistant run ended with status %s", run.Status)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}

		run, err = c.api.RetrieveRun(ctx, thread.ID, run.ID)
		if err != nil {
			return "", fmt.Errorf("poll run: %w", err)
		}
	}

	msgs, err := c.api.ListMessage(ctx, thread.ID, nil, nil, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}

	for _, m := range msgs.Messages {
		if m.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		for _, part := range m.Content {
			if part.Text != nil {
				return part.Text.Value, nil
			}
		}
	}

	logx.Warn().Str("thread_id", thread.ID).Msg("assistant run completed without an assistant message")
	return "No hubo respuesta del asistente", nil
}
