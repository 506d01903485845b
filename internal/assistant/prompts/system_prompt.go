package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/vayllon301/menteviva-backend/internal/assistant/model"
	"github.com/vayllon301/menteviva-backend/internal/assistant/tools"
)

//go:embed template/system_prompt.txt
var systemPromptTemplate string

// RenderSystem renders the system message for one loop invocation. It is
// pure given (now, profile) and must be called fresh on every invocation:
// the date changes daily and the profile changes per request.
func RenderSystem(ctx context.Context, cfg model.PromptConfig, variant string, profile *model.Profile, now time.Time) (string, error) {
	city := cfg.DefaultCity
	vars := map[string]any{
		"AssistantName":  cfg.AssistantName,
		"Today":          FormatSpanishDate(now),
		"WeatherTool":    tools.ToolGetWeather,
		"NewsTool":       tools.ToolGetNews,
		"NewspapersTool": tools.ToolGetNewspaperNews,
		"AlertTool":      tools.ToolSendAlert,
		"HasExtras":      variant != tools.VariantBasic,
		"HasProfile":     !profile.IsEmpty(),
		"Name":           "",
		"Phone":          "",
		"Description":    "",
		"Interests":      "",
	}
	if !profile.IsEmpty() {
		vars["Name"] = strings.TrimSpace(profile.Name)
		vars["Phone"] = strings.TrimSpace(profile.Phone)
		vars["Description"] = strings.TrimSpace(profile.Description)
		vars["Interests"] = strings.TrimSpace(profile.Interests)
		if c := strings.TrimSpace(profile.City); c != "" {
			city = c
		}
	}
	vars["City"] = city

	// Render via the eino prompt component so prompt callbacks fire.
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(systemPromptTemplate),
	)
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("system prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("system prompt render: empty result")
	}
	return msgs[0].Content, nil
}
