package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/vayllon301/menteviva-backend/internal/adapters/alert"
	"github.com/vayllon301/menteviva-backend/internal/adapters/news"
	"github.com/vayllon301/menteviva-backend/internal/adapters/newspapers"
	"github.com/vayllon301/menteviva-backend/internal/adapters/weather"
	"github.com/vayllon301/menteviva-backend/internal/assistant/model"
	"github.com/vayllon301/menteviva-backend/internal/assistant/tools"
)

// scriptedModel replays a fixed sequence of responses and records every
// input it was called with.
type scriptedModel struct {
	mu        sync.Mutex
	responses []*schema.Message
	calls     [][]*schema.Message
}

func (m *scriptedModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make([]*schema.Message, len(input))
	copy(snapshot, input)
	m.calls = append(m.calls, snapshot)

	idx := len(m.calls) - 1
	if idx >= len(m.responses) {
		return nil, fmt.Errorf("scripted model exhausted after %d responses", len(m.responses))
	}
	return m.responses[idx], nil
}

func (m *scriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("streaming not supported")
}

type fakeWeather struct {
	mu     sync.Mutex
	cities []string
}

func (f *fakeWeather) Current(ctx context.Context, city, country string) *weather.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cities = append(f.cities, city)
	return &weather.Result{Weather: &weather.Reading{
		City: city, Country: "Spain", Temperature: 22, FeelsLike: 21,
		Description: "Soleado", Humidity: 40, WindSpeed: 10,
	}}
}

type fakeNews struct{}

func (fakeNews) TopHeadlines(ctx context.Context, limit int) *news.Result {
	return &news.Result{Total: 1, News: []news.Item{{Title: "Titular", Source: "RTVE"}}}
}

type fakeNewspapers struct{}

func (fakeNewspapers) Headlines(ctx context.Context, source string, limit int) *newspapers.Result {
	return &newspapers.Result{Total: 1, News: []newspapers.Item{{Title: "Portada", Source: "El País"}}}
}

type fakeAlert struct {
	mu         sync.Mutex
	recipients []string
}

func (f *fakeAlert) Send(ctx context.Context, message, to string) *alert.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recipients = append(f.recipients, to)
	return &alert.Result{Alert: &alert.Delivery{Recipient: to, Status: "queued"}}
}

func terminal(content string) *schema.Message {
	return schema.AssistantMessage(content, nil)
}

func toolCall(id, name, args string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			{ID: id, Function: schema.FunctionCall{Name: name, Arguments: args}},
		},
	}
}

type testEnv struct {
	model   *scriptedModel
	weather *fakeWeather
	alert   *fakeAlert
	runner  Runner
}

func newTestEnv(t *testing.T, maxToolCalls int, responses ...*schema.Message) *testEnv {
	t.Helper()

	cm := &scriptedModel{responses: responses}
	fw := &fakeWeather{}
	fa := &fakeAlert{}
	deps := tools.Deps{Weather: fw, News: fakeNews{}, Newspapers: fakeNewspapers{}, Alert: fa}

	promptCfg := &model.PromptConfig{AssistantName: "MenteViva", DefaultCity: "Madrid"}
	runnable, err := BuildGraph(context.Background(), &GraphConfig{
		ChatModel:    cm,
		Tools:        tools.ForVariant(tools.VariantFull, deps),
		PromptConfig: promptCfg,
		Toolset:      tools.VariantFull,
		ToolMaxCalls: maxToolCalls,
	})
	if err != nil {
		t.Fatalf("BuildGraph() error = %v", err)
	}

	return &testEnv{
		model:   cm,
		weather: fw,
		alert:   fa,
		runner:  &graphRunner{runnable: runnable},
	}
}

func TestInvokeTerminalFirstResponse(t *testing.T) {
	env := newTestEnv(t, 8, terminal("¡Hola! ¿Cómo estás?"))

	got, err := env.runner.Invoke(context.Background(), model.ChatInput{Message: "Hola"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if got != "¡Hola! ¿Cómo estás?" {
		t.Errorf("reply = %q", got)
	}
	if len(env.model.calls) != 1 {
		t.Fatalf("model called %d times, want 1", len(env.model.calls))
	}

	in := env.model.calls[0]
	if in[0].Role != schema.System || !strings.Contains(in[0].Content, "Hoy es") {
		t.Error("first message must be the dated system prompt")
	}
	last := in[len(in)-1]
	if last.Role != schema.User || last.Content != "Hola" {
		t.Errorf("last message = %v %q", last.Role, last.Content)
	}
}

func TestInvokeIncludesClientHistory(t *testing.T) {
	env := newTestEnv(t, 8, terminal("Claro."))

	history := []*schema.Message{
		schema.UserMessage("Hola"),
		schema.AssistantMessage("¡Hola! ¿Cómo estás?", nil),
	}
	_, err := env.runner.Invoke(context.Background(), model.ChatInput{Message: "Cuéntame algo", History: history})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	in := env.model.calls[0]
	if len(in) != 4 {
		t.Fatalf("model input has %d messages, want system + 2 history + user", len(in))
	}
	if in[1].Content != "Hola" || in[2].Content != "¡Hola! ¿Cómo estás?" {
		t.Error("history must sit between the system prompt and the new message")
	}
}

func TestInvokeEmptyMessage(t *testing.T) {
	env := newTestEnv(t, 8)

	if _, err := env.runner.Invoke(context.Background(), model.ChatInput{Message: "   "}); err == nil {
		t.Fatal("expected an error for a blank message")
	}
}

func TestInvokeToolRoundTrip(t *testing.T) {
	env := newTestEnv(t, 8,
		toolCall("call_a", tools.ToolGetWeather, `{"city":"Valencia","country_code":"ES"}`),
		terminal("Hace sol en Valencia, 22 grados."),
	)

	got, err := env.runner.Invoke(context.Background(), model.ChatInput{Message: "¿Qué tiempo hace en Valencia?"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if got != "Hace sol en Valencia, 22 grados." {
		t.Errorf("reply = %q", got)
	}

	if got := env.weather.cities; len(got) != 1 || got[0] != "Valencia" {
		t.Errorf("weather adapter calls = %v", got)
	}

	// The second model call must carry the tool result, paired by id.
	second := env.model.calls[1]
	var toolMsg *schema.Message
	for _, m := range second {
		if m.Role == schema.Tool {
			toolMsg = m
		}
	}
	if toolMsg == nil {
		t.Fatal("second model input has no tool result")
	}
	if toolMsg.ToolCallID != "call_a" {
		t.Errorf("tool result id = %q, want call_a", toolMsg.ToolCallID)
	}
	if !strings.Contains(toolMsg.Content, "Valencia") {
		t.Errorf("tool result = %q", toolMsg.Content)
	}
}

func TestInvokeMultipleToolCallsInOneTurn(t *testing.T) {
	batch := &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			{ID: "call_a", Function: schema.FunctionCall{Name: tools.ToolGetWeather, Arguments: `{"city":"Madrid"}`}},
			{ID: "call_b", Function: schema.FunctionCall{Name: tools.ToolGetNews, Arguments: `{"limit":3}`}},
		},
	}
	env := newTestEnv(t, 8, batch, terminal("Tiempo y noticias, ahí van."))

	_, err := env.runner.Invoke(context.Background(), model.ChatInput{Message: "Tiempo y noticias"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	// One result per request, paired by id, in request order.
	second := env.model.calls[1]
	var ids []string
	for _, m := range second {
		if m.Role == schema.Tool {
			ids = append(ids, m.ToolCallID)
		}
	}
	if len(ids) != 2 || ids[0] != "call_a" || ids[1] != "call_b" {
		t.Errorf("tool result ids = %v, want [call_a call_b]", ids)
	}
}

func TestTwoAlertRequestsSendTwice(t *testing.T) {
	env := newTestEnv(t, 8,
		toolCall("call_a", tools.ToolSendAlert, `{"message":"Primer aviso","to":"+34600111222"}`),
		terminal("Enviado."),
	)

	if _, err := env.runner.Invoke(context.Background(), model.ChatInput{Message: "Avisa"}); err != nil {
		t.Fatalf("first Invoke() error = %v", err)
	}

	// A fresh scripted run against the same adapter: no deduplication.
	env.model.mu.Lock()
	env.model.responses = append(env.model.responses,
		toolCall("call_b", tools.ToolSendAlert, `{"message":"Segundo aviso","to":"+34600111222"}`),
		terminal("Enviado otra vez."),
	)
	env.model.mu.Unlock()

	if _, err := env.runner.Invoke(context.Background(), model.ChatInput{Message: "Avisa otra vez"}); err != nil {
		t.Fatalf("second Invoke() error = %v", err)
	}

	if got := len(env.alert.recipients); got != 2 {
		t.Errorf("alert sends = %d, want exactly 2 with no deduplication", got)
	}
}

func TestInvokeDefaultsCityFromProfile(t *testing.T) {
	env := newTestEnv(t, 8,
		toolCall("call_a", tools.ToolGetWeather, `{"city":""}`),
		terminal("En Valencia hace sol."),
	)

	profile := &model.Profile{Name: "Marta", City: "Valencia"}
	_, err := env.runner.Invoke(context.Background(), model.ChatInput{
		Message: "¿Qué tiempo hace?",
		Profile: profile,
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if got := env.weather.cities; len(got) != 1 || got[0] != "Valencia" {
		t.Errorf("weather adapter calls = %v, want the profile city injected", got)
	}
}

func TestInvokeDefaultsAlertRecipientFromProfile(t *testing.T) {
	env := newTestEnv(t, 8,
		toolCall("call_a", tools.ToolSendAlert, `{"message":"Me encuentro mal"}`),
		terminal("He avisado a tu contacto."),
	)

	profile := &model.Profile{Name: "Marta", Phone: "+34600111222"}
	_, err := env.runner.Invoke(context.Background(), model.ChatInput{
		Message: "Avisa a mi hija",
		Profile: profile,
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if got := env.alert.recipients; len(got) != 1 || got[0] != "+34600111222" {
		t.Errorf("alert recipients = %v, want the profile phone injected", got)
	}
}

func TestInvokeSynthesizesToolCallIDs(t *testing.T) {
	env := newTestEnv(t, 8,
		toolCall("", tools.ToolGetWeather, `{"city":"Madrid"}`),
		terminal("Listo."),
	)

	_, err := env.runner.Invoke(context.Background(), model.ChatInput{Message: "¿Qué tiempo hace?"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	second := env.model.calls[1]
	var assistantID, toolResultID string
	for _, m := range second {
		switch {
		case m.Role == schema.Assistant && len(m.ToolCalls) > 0:
			assistantID = m.ToolCalls[0].ID
		case m.Role == schema.Tool:
			toolResultID = m.ToolCallID
		}
	}
	if assistantID != "call_1" {
		t.Errorf("synthesized id = %q, want call_1", assistantID)
	}
	if toolResultID != assistantID {
		t.Errorf("tool result id %q does not match request id %q", toolResultID, assistantID)
	}
}

func TestInvokeUnknownToolIsNotFatal(t *testing.T) {
	env := newTestEnv(t, 8,
		toolCall("call_a", "telepatia", `{"x":1}`),
		terminal("Eso no sé hacerlo, pero puedo ayudarte con otra cosa."),
	)

	got, err := env.runner.Invoke(context.Background(), model.ChatInput{Message: "Haz magia"})
	if err != nil {
		t.Fatalf("unknown tool must not fail the run: %v", err)
	}
	if got == "" {
		t.Fatal("expected the scripted terminal reply")
	}

	second := env.model.calls[1]
	var toolMsg *schema.Message
	for _, m := range second {
		if m.Role == schema.Tool {
			toolMsg = m
		}
	}
	if toolMsg == nil {
		t.Fatal("second model input has no tool result")
	}
	if !strings.Contains(toolMsg.Content, "unknown_tool") {
		t.Errorf("tool result = %q, want an unknown_tool marker", toolMsg.Content)
	}
}

func TestInvokeToolCallLimit(t *testing.T) {
	weatherCall := func(id string) *schema.Message {
		return toolCall(id, tools.ToolGetWeather, `{"city":"Madrid"}`)
	}

	t.Run("wrap-up notice reaches the model", func(t *testing.T) {
		env := newTestEnv(t, 2,
			weatherCall("call_a"),
			weatherCall("call_b"),
			terminal("Esto es lo que he podido consultar."),
		)

		got, err := env.runner.Invoke(context.Background(), model.ChatInput{Message: "El tiempo, una y otra vez"})
		if err != nil {
			t.Fatalf("Invoke() error = %v", err)
		}
		if got != "Esto es lo que he podido consultar." {
			t.Errorf("reply = %q", got)
		}
		if len(env.weather.cities) != 2 {
			t.Errorf("weather adapter called %d times, want the limit of 2", len(env.weather.cities))
		}

		third := env.model.calls[2]
		found := false
		for _, m := range third {
			if m.Role == schema.System && strings.Contains(m.Content, "maximum tool call limit") {
				found = true
			}
		}
		if !found {
			t.Error("final model call must carry the wrap-up notice")
		}
	})

	t.Run("run ends even if the model keeps requesting tools", func(t *testing.T) {
		env := newTestEnv(t, 2,
			weatherCall("call_a"),
			weatherCall("call_b"),
			weatherCall("call_c"),
		)

		_, err := env.runner.Invoke(context.Background(), model.ChatInput{Message: "Otra vez"})
		if err != nil {
			t.Fatalf("Invoke() error = %v", err)
		}
		if len(env.model.calls) != 3 {
			t.Errorf("model called %d times, want exactly 3", len(env.model.calls))
		}
		if len(env.weather.cities) != 2 {
			t.Errorf("weather adapter called %d times, want 2", len(env.weather.cities))
		}
	})
}

func TestRespondAdaptsPlainText(t *testing.T) {
	env := newTestEnv(t, 8, terminal("Hoy es lunes."))

	got, err := env.runner.Respond(context.Background(), "¿Qué día es hoy?")
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if got != "Hoy es lunes." {
		t.Errorf("reply = %q", got)
	}
}

func TestBuildGraphValidation(t *testing.T) {
	deps := tools.Deps{Weather: &fakeWeather{}, News: fakeNews{}, Newspapers: fakeNewspapers{}, Alert: &fakeAlert{}}
	promptCfg := &model.PromptConfig{AssistantName: "MenteViva", DefaultCity: "Madrid"}

	tests := []struct {
		name string
		cfg  *GraphConfig
	}{
		{"nil config", nil},
		{"nil model", &GraphConfig{Tools: tools.ForVariant(tools.VariantFull, deps), PromptConfig: promptCfg}},
		{"no tools", &GraphConfig{ChatModel: &scriptedModel{}, PromptConfig: promptCfg}},
		{"nil prompt config", &GraphConfig{ChatModel: &scriptedModel{}, Tools: tools.ForVariant(tools.VariantFull, deps)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildGraph(context.Background(), tt.cfg); err == nil {
				t.Error("expected a build error")
			}
		})
	}
}
