// Package graph builds the tool-augmented conversation loop as an eino
// graph: context builder, chat model and tool executor connected in a cycle
// that ends when the model answers without requesting tools.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/vayllon301/menteviva-backend/internal/assistant/graph/nodes"
	"github.com/vayllon301/menteviva-backend/internal/assistant/graph/observers"
	"github.com/vayllon301/menteviva-backend/internal/assistant/model"
	"github.com/vayllon301/menteviva-backend/internal/assistant/tools"
	logx "github.com/vayllon301/menteviva-backend/pkg/logger"
)

// Runner executes the compiled graph for one conversation request.
type Runner interface {
	Invoke(ctx context.Context, in model.ChatInput) (string, error)
	// Respond adapts the runner to the voice pipeline: plain text in,
	// final reply out.
	Respond(ctx context.Context, text string) (string, error)
}

// Config holds everything needed to compose the assistant graph end-to-end.
type Config struct {
	APIKey       string
	BaseURL      string
	ChatModel    model.ChatModelConfig
	Prompt       model.PromptConfig
	Conversation model.ConversationConfig
	Toolset      model.ToolsetConfig
	ToolDeps     tools.Deps
}

// GraphConfig holds the already-constructed pieces the graph builder wires
// together. Tests inject a scripted chat model here.
type GraphConfig struct {
	ChatModel    einomodel.BaseChatModel
	Tools        []tool.BaseTool
	PromptConfig *model.PromptConfig
	Toolset      string
	ToolMaxCalls int
}

// GraphBuilder handles the construction of the conversation graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.ChatInput, *schema.Message]
}

type graphRunner struct {
	runnable compose.Runnable[model.ChatInput, *schema.Message]
	timeout  time.Duration
}

func (r *graphRunner) Invoke(ctx context.Context, in model.ChatInput) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", nil
	}
	return out.Content, nil
}

func (r *graphRunner) Respond(ctx context.Context, text string) (string, error) {
	return r.Invoke(ctx, model.ChatInput{Message: text})
}

// BuildAssistantGraph constructs the chat model, the tool registry for the
// configured variant, and the compiled graph, returning a Runner.
func BuildAssistantGraph(ctx context.Context, cfg Config) (Runner, error) {
	cm, err := nodes.NewChatModel(ctx, nodes.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Config:  &cfg.ChatModel,
	})
	if err != nil {
		return nil, err
	}

	assistantTools := tools.ForVariant(cfg.Toolset.Variant, cfg.ToolDeps)
	toolInfos, err := tools.GetToolInfos(ctx, assistantTools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return nil, fmt.Errorf("failed to get tool infos: %w", err)
	}
	if err := nodes.BindTools(cm, toolInfos); err != nil {
		return nil, err
	}

	runnable, err := BuildGraph(ctx, &GraphConfig{
		ChatModel:    cm,
		Tools:        assistantTools,
		PromptConfig: &cfg.Prompt,
		Toolset:      cfg.Toolset.Variant,
		ToolMaxCalls: cfg.Conversation.Tools.MaxCalls,
	})
	if err != nil {
		return nil, err
	}

	timeout, err := time.ParseDuration(cfg.Conversation.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid conversation request timeout %q: %w", cfg.Conversation.RequestTimeout, err)
	}

	logx.Debug().Str("toolset", cfg.Toolset.Variant).Msg("Assistant graph built successfully")
	return &graphRunner{runnable: runnable, timeout: timeout}, nil
}

// BuildGraph constructs and compiles the conversation graph.
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.ChatInput, *schema.Message], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModel == nil {
		return nil, fmt.Errorf("chat model is not initialized")
	}
	if config.PromptConfig == nil {
		return nil, fmt.Errorf("prompt config is nil")
	}
	if len(config.Tools) == 0 {
		return nil, fmt.Errorf("tool registry is empty")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.ChatInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.setupTools(ctx); err != nil {
		return nil, err
	}

	builder.addNodes()
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// setupTools configures the tool executor node.
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               b.config.Tools,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			// A well-behaved model only names registered tools; hallucinated
			// names come back as data, never as an error.
			logx.Warn().
				Str("tool_name", name).
				Str("arguments", input).
				Msg("Unknown or invalid tool call; returning fallback result")
			return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q,\"note\":\"ignored\"}", name), nil
		},
		ToolArgumentsHandler: newToolArgumentsHandler(),
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	b.graph.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler(b.config.ToolMaxCalls)),
	)
	return nil
}

// newToolArgumentsHandler sanitizes model-emitted arguments and fills
// profile defaults (city for weather, phone for alerts) before dispatch.
// It never fails hard: unparseable arguments pass through untouched.
func newToolArgumentsHandler() func(ctx context.Context, name, arguments string) (string, error) {
	return func(ctx context.Context, name, arguments string) (string, error) {
		var m map[string]any
		if err := json.Unmarshal([]byte(arguments), &m); err != nil {
			return arguments, nil
		}

		var profile *model.Profile
		compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			profile = state.Profile
			return nil
		})

		switch name {
		case tools.ToolGetWeather:
			city := coerceString(m, "city")
			if city == "" && profile != nil {
				city = strings.TrimSpace(profile.City)
			}
			if city != "" {
				m["city"] = city
			} else {
				delete(m, "city")
			}
			if cc := coerceString(m, "country_code"); cc != "" {
				m["country_code"] = cc
			} else {
				delete(m, "country_code")
			}
		case tools.ToolGetNews:
			clampLimitArg(m, "limit")
		case tools.ToolGetNewspaperNews:
			if src := strings.ToLower(coerceString(m, "source")); src != "" {
				m["source"] = src
			} else {
				delete(m, "source")
			}
			clampLimitArg(m, "limit")
		case tools.ToolSendAlert:
			if msg := coerceString(m, "message"); msg != "" {
				m["message"] = msg
			}
			to := coerceString(m, "to")
			if to == "" && profile != nil {
				to = strings.TrimSpace(profile.Phone)
			}
			if to != "" {
				m["to"] = to
			} else {
				delete(m, "to")
			}
		}

		b, err := json.Marshal(m)
		if err != nil {
			return arguments, nil
		}
		return string(b), nil
	}
}

// addNodes adds the processing nodes to the graph.
func (b *GraphBuilder) addNodes() {
	b.graph.AddLambdaNode(nodes.NodeContextBuilder,
		nodes.NewContextBuilderNode(b.config.PromptConfig, b.config.Toolset),
		compose.WithStatePreHandler(nodes.NewContextBuilderPreHandler()),
	)

	b.graph.AddChatModelNode(nodes.NodeChatModel,
		b.config.ChatModel,
		compose.WithStatePreHandler(nodes.NewChatModelPreHandler(b.config.ToolMaxCalls)),
		compose.WithStatePostHandler(nodes.NewChatModelPostHandler()),
	)
}

// addEdges creates the main flow connections between nodes.
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, nodes.NodeContextBuilder},
		{nodes.NodeContextBuilder, nodes.NodeChatModel},
		{nodes.NodeToolExecutor, nodes.NodeChatModel},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches creates the terminal-or-dispatch branch after the model.
func (b *GraphBuilder) addBranches() error {
	decisionBranch := compose.NewGraphBranch(
		nodes.NewToolExecutorCondition(),
		map[string]bool{
			nodes.NodeToolExecutor: true,
			compose.END:            true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeChatModel, decisionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding decision branch")
		return fmt.Errorf("error adding decision branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.ChatInput, *schema.Message], error) {
	// Limit total run steps to backstop the branch cycle itself.
	maxSteps := 10 + normalizedMaxCalls(b.config.ToolMaxCalls)*2
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

func normalizedMaxCalls(n int) int {
	if n <= 0 {
		return nodes.DefaultMaxToolCalls
	}
	return n
}

// coerceString extracts a trimmed string value for key, converting
// non-string scalars the model occasionally emits.
func coerceString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	switch vv := v.(type) {
	case string:
		return strings.TrimSpace(vv)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// clampLimitArg normalizes a numeric limit argument to [1, MaxNewsLimit],
// defaulting when absent or malformed.
func clampLimitArg(m map[string]any, key string) {
	v, ok := m[key]
	if !ok {
		return
	}
	switch vv := v.(type) {
	case float64:
		// JSON numbers decode as float64.
		m[key] = tools.ClampNewsLimit(int(vv))
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(vv)); err == nil {
			m[key] = tools.ClampNewsLimit(n)
		} else {
			delete(m, key)
		}
	default:
		delete(m, key)
	}
}
