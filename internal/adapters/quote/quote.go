// Package quote generates short motivational quotes matched to a topic and
// the user's interests.
package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type Config struct {
	Model string `envconfig:"QUOTE_MODEL" default:"gpt-4o-mini"`
}

type Quote struct {
	Quote    string `json:"quote"`
	Author   string `json:"author"`
	Location string `json:"location"`
}

type Response struct {
	Quotes []Quote `json:"quotes"`
}

const systemPrompt = "You are a quote generator. Given a topic description and a list of " +
	"interests, return exactly 3 quotes with the author and the author's location. " +
	`Answer with a single JSON object of the form {"quotes":[{"quote":"...","author":"...","location":"..."}]} and nothing else.`

// chatCompleter is the slice of the OpenAI client the generator needs;
// *openai.Client satisfies it.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Generator struct {
	cfg Config
	api chatCompleter
}

func New(cfg Config, api chatCompleter) *Generator {
	return &Generator{cfg: cfg, api: api}
}

// Generate asks the model for exactly three quotes in JSON mode and decodes
// them into typed structs.
func (g *Generator) Generate(ctx context.Context, description string, interests []string) (*Response, error) {
	userMessage := fmt.Sprintf("Topic: %s\nInterests: %s", description, strings.Join(interests, ", "))

	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generate quotes: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("generate quotes: empty completion")
	}

	var out Response
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return nil, fmt.Errorf("decode quotes payload: %w", err)
	}
	return &out, nil
}
