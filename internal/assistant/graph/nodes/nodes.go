package nodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/vayllon301/menteviva-backend/internal/assistant/model"
	"github.com/vayllon301/menteviva-backend/internal/assistant/prompts"
	logx "github.com/vayllon301/menteviva-backend/pkg/logger"
)

// NewContextBuilderPreHandler resets per-invocation state and captures the
// request profile so later handlers (tool-argument defaulting) can read it.
func NewContextBuilderPreHandler() func(context.Context, model.ChatInput, *model.AppState) (model.ChatInput, error) {
	return func(ctx context.Context, in model.ChatInput, s *model.AppState) (model.ChatInput, error) {
		s.Profile = in.Profile
		s.History = nil
		s.ToolCallCount = 0
		s.ToolCallLimitReached = false
		s.ToolCallIDSeq = 0
		return in, nil
	}
}

// NewContextBuilderNode assembles the message sequence for the model: a
// freshly rendered system message, the client-supplied history, then the new
// user message. The system message is never cached; the date and profile
// change between requests.
func NewContextBuilderNode(promptCfg *model.PromptConfig, toolsetVariant string) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.ChatInput) ([]*schema.Message, error) {
		if strings.TrimSpace(input.Message) == "" {
			return nil, fmt.Errorf("empty user message")
		}

		systemPrompt, err := prompts.RenderSystem(ctx, *promptCfg, toolsetVariant, input.Profile, time.Now())
		if err != nil {
			return nil, fmt.Errorf("render system prompt: %w", err)
		}

		messages := make([]*schema.Message, 0, len(input.History)+2)
		messages = append(messages, schema.SystemMessage(systemPrompt))
		for _, m := range input.History {
			// Client histories carry only completed user/assistant turns.
			if m == nil || m.Content == "" {
				continue
			}
			switch m.Role {
			case schema.User, schema.Assistant:
				messages = append(messages, m)
			}
		}
		messages = append(messages, schema.UserMessage(input.Message))

		return messages, nil
	})
}

// NewChatModelPreHandler accumulates incoming messages into state history
// and, once the tool-call limit is hit, adds a wrap-up notice so the model
// produces a best-effort final answer instead of looping forever.
func NewChatModelPreHandler(maxToolCalls int) func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		// Some providers omit tool_call_id on tool results; backfill from
		// the most recent assistant tool call so request/result pairing
		// stays auditable.
		if len(in) > 0 {
			last := in[len(in)-1]
			if last != nil && last.Role == schema.Tool && strings.TrimSpace(last.ToolCallID) == "" {
				for i := len(state.History) - 1; i >= 0; i-- {
					msg := state.History[i]
					if msg == nil || msg.Role != schema.Assistant || len(msg.ToolCalls) == 0 {
						continue
					}
					if id := strings.TrimSpace(msg.ToolCalls[0].ID); id != "" {
						last.ToolCallID = id
					}
					break
				}
			}
		}

		state.History = append(state.History, in...)

		if checkAndMarkToolLimit(state, maxToolCalls) {
			maxToolCalls = normalizeMaxToolCalls(maxToolCalls)
			wrapUp := &schema.Message{
				Role: schema.System,
				Content: fmt.Sprintf(
					"SYSTEM NOTICE: You have reached the maximum tool call limit (%d). "+
						"Please answer the user now in Spanish using the information you already gathered, "+
						"and gently acknowledge anything you could not look up.",
					maxToolCalls,
				),
			}
			state.History = append(state.History, wrapUp)
		}

		return state.History, nil
	}
}

// NewChatModelPostHandler normalizes tool-call ids on the model output and
// appends it to state history.
func NewChatModelPostHandler() func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		if out == nil {
			return nil, fmt.Errorf("chat model returned nil message")
		}

		// Synthesize call ids when the provider omits them, so every tool
		// result can be tagged with the request it answers.
		for i := range out.ToolCalls {
			if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
				state.ToolCallIDSeq++
				out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
			}
		}

		state.History = append(state.History, out)

		if len(out.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		} else {
			logx.Debug().Msg("Assistant response ready")
		}
		return out, nil
	}
}

// NewToolExecutorCondition routes the model output: tool calls loop through
// the executor, anything else (or a reached limit) ends the run.
func NewToolExecutorCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		var limitReached bool
		compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			limitReached = state.ToolCallLimitReached
			return nil
		})

		if limitReached {
			logx.Debug().Msg("Tool limit reached previously - routing to end")
			return compose.END, nil
		}

		if len(input.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to tool executor")
			return NodeToolExecutor, nil
		}

		logx.Debug().Msg("No tool calls - terminal message")
		return compose.END, nil
	}
}

// NewToolExecutorPreHandler counts tool-dispatch rounds against the limit.
func NewToolExecutorPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.AppState) (*schema.Message, error) {
		exceeded := incrementToolCallAndCheck(state, maxToolCalls)

		logx.Debug().
			Int("tool_call_count", state.ToolCallCount).
			Msg("Tool execution attempt")

		if exceeded {
			logx.Warn().
				Int("tool_call_count", state.ToolCallCount).
				Int("max_tool_calls", normalizeMaxToolCalls(maxToolCalls)).
				Msg("Tool call limit exceeded - flagging and continuing")
		}

		return in, nil
	}
}
