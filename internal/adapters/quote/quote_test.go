package quote

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

type fakeCompleter struct {
	reqs    []openai.ChatCompletionRequest
	content string
	err     error
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.reqs = append(f.reqs, request)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

const quotesJSON = `{"quotes":[
	{"quote":"Uno","author":"A","location":"Madrid"},
	{"quote":"Dos","author":"B","location":"Sevilla"},
	{"quote":"Tres","author":"C","location":"Bilbao"}
]}`

func TestGenerateDecodesQuotes(t *testing.T) {
	api := &fakeCompleter{content: quotesJSON}
	g := New(Config{Model: "gpt-4o-mini"}, api)

	resp, err := g.Generate(context.Background(), "la amistad", []string{"jardinería", "cocina"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(resp.Quotes) != 3 {
		t.Fatalf("got %d quotes, want 3", len(resp.Quotes))
	}
	if resp.Quotes[0].Quote != "Uno" || resp.Quotes[2].Location != "Bilbao" {
		t.Errorf("quotes = %+v", resp.Quotes)
	}

	req := api.reqs[0]
	if req.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", req.Model)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Error("request must force JSON mode")
	}
	user := req.Messages[len(req.Messages)-1].Content
	if !strings.Contains(user, "la amistad") || !strings.Contains(user, "jardinería, cocina") {
		t.Errorf("user message = %q", user)
	}
}

func TestGenerateAPIFailure(t *testing.T) {
	api := &fakeCompleter{err: errors.New("rate limited")}
	g := New(Config{Model: "gpt-4o-mini"}, api)

	if _, err := g.Generate(context.Background(), "x", nil); err == nil {
		t.Fatal("expected an error")
	}
}

func TestGenerateMalformedPayload(t *testing.T) {
	api := &fakeCompleter{content: "sorry, I cannot"}
	g := New(Config{Model: "gpt-4o-mini"}, api)

	if _, err := g.Generate(context.Background(), "x", nil); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestGenerateEmptyCompletion(t *testing.T) {
	g := New(Config{Model: "gpt-4o-mini"}, &emptyCompleter{})

	if _, err := g.Generate(context.Background(), "x", nil); err == nil {
		t.Fatal("expected an error on empty choices")
	}
}

type emptyCompleter struct{}

func (emptyCompleter) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{}, nil
}
