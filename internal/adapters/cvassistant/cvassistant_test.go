package cvassistant

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type fakeThreadAPI struct {
	runStatuses []openai.RunStatus
	retrieves   int
	messages    openai.MessagesList

	createRunErr error
	postedTo     string
	posted       string
}

func (f *fakeThreadAPI) CreateThread(ctx context.Context, request openai.ThreadRequest) (openai.Thread, error) {
	return openai.Thread{ID: "thread_1"}, nil
}

func (f *fakeThreadAPI) CreateMessage(ctx context.Context, threadID string, request openai.MessageRequest) (openai.Message, error) {
	f.postedTo = threadID
	f.posted = request.Content
	return openai.Message{}, nil
}

func (f *fakeThreadAPI) CreateRun(ctx context.Context, threadID string, request openai.RunRequest) (openai.Run, error) {
	if f.createRunErr != nil {
		return openai.Run{}, f.createRunErr
	}
	return openai.Run{ID: "run_1", Status: f.runStatuses[0]}, nil
}

func (f *fakeThreadAPI) RetrieveRun(ctx context.Context, threadID string, runID string) (openai.Run, error) {
	f.retrieves++
	idx := f.retrieves
	if idx >= len(f.runStatuses) {
		idx = len(f.runStatuses) - 1
	}
	return openai.Run{ID: runID, Status: f.runStatuses[idx]}, nil
}

func (f *fakeThreadAPI) ListMessage(ctx context.Context, threadID string, limit *int, order *string, after *string, before *string, runID *string) (openai.MessagesList, error) {
	return f.messages, nil
}

func assistantReply(text string) openai.MessagesList {
	return openai.MessagesList{
		Messages: []openai.Message{
			{
				Role: openai.ChatMessageRoleAssistant,
				Content: []openai.MessageContent{
					{Text: &openai.MessageText{Value: text}},
				},
			},
			{Role: openai.ChatMessageRoleUser},
		},
	}
}

func testClient(api *fakeThreadAPI) *Client {
	return New(Config{AssistantID: "asst_1", PollInterval: "1ms"}, api)
}

func TestAskPollsUntilCompleted(t *testing.T) {
	api := &fakeThreadAPI{
		runStatuses: []openai.RunStatus{openai.RunStatusQueued, openai.RunStatusInProgress, openai.RunStatusCompleted},
		messages:    assistantReply("Blanca trabajó cinco años en enfermería."),
	}
	c := testClient(api)

	got, err := c.Ask(context.Background(), "¿Dónde trabajó Blanca?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got != "Blanca trabajó cinco años en enfermería." {
		t.Errorf("reply = %q", got)
	}
	if api.posted != "¿Dónde trabajó Blanca?" || api.postedTo != "thread_1" {
		t.Errorf("posted %q to %q", api.posted, api.postedTo)
	}
	if api.retrieves < 2 {
		t.Errorf("expected polling before completion, got %d retrieves", api.retrieves)
	}
}

func TestAskFailsOnTerminalErrorStatus(t *testing.T) {
	for _, status := range []openai.RunStatus{openai.RunStatusFailed, openai.RunStatusCancelled, openai.RunStatusExpired} {
		t.Run(string(status), func(t *testing.T) {
			api := &fakeThreadAPI{runStatuses: []openai.RunStatus{status}}
			c := testClient(api)

			if _, err := c.Ask(context.Background(), "hola"); err == nil {
				t.Fatal("expected an error for terminal status")
			}
		})
	}
}

func TestAskMissingAssistantID(t *testing.T) {
	c := New(Config{PollInterval: "1ms"}, &fakeThreadAPI{})
	if _, err := c.Ask(context.Background(), "hola"); err == nil {
		t.Fatal("expected an error without CV_ASSISTANT_ID")
	}
}

func TestAskHonorsContextCancellation(t *testing.T) {
	api := &fakeThreadAPI{
		// Never completes.
		runStatuses: []openai.RunStatus{openai.RunStatusInProgress, openai.RunStatusInProgress},
	}
	c := New(Config{AssistantID: "asst_1", PollInterval: "50ms"}, api)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.Ask(ctx, "hola")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestAskFallbackWhenNoAssistantMessage(t *testing.T) {
	api := &fakeThreadAPI{
		runStatuses: []openai.RunStatus{openai.RunStatusCompleted},
		messages:    openai.MessagesList{Messages: []openai.Message{{Role: openai.ChatMessageRoleUser}}},
	}
	c := testClient(api)

	got, err := c.Ask(context.Background(), "hola")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got != "No hubo respuesta del asistente" {
		t.Errorf("reply = %q", got)
	}
}
