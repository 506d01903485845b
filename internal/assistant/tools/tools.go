// Package tools declares the assistant's tool registry: the fixed set of
// callable operations the chat model may request, each described by an eino
// ToolInfo schema. Tool invocations never return an error past the dispatch
// boundary; failures become Spanish text the model can relay.
package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/vayllon301/menteviva-backend/internal/adapters/alert"
	"github.com/vayllon301/menteviva-backend/internal/adapters/news"
	"github.com/vayllon301/menteviva-backend/internal/adapters/newspapers"
	"github.com/vayllon301/menteviva-backend/internal/adapters/weather"
)

// Tool names as exposed to the model.
const (
	ToolGetWeather       = "get_weather"
	ToolGetNews          = "get_news"
	ToolGetNewspaperNews = "get_newspaper_news"
	ToolSendAlert        = "send_alert"
)

// Deployment variants.
const (
	VariantFull  = "full"
	VariantBasic = "basic"
)

// News limits applied at dispatch so a tool call can never flood the reply.
const (
	DefaultNewsLimit = 5
	MaxNewsLimit     = 10
)

// WeatherSource, NewsSource, NewspaperSource and AlertSender are the
// adapter slices the tools depend on; the real clients satisfy them.
type WeatherSource interface {
	Current(ctx context.Context, city, country string) *weather.Result
}

type NewsSource interface {
	TopHeadlines(ctx context.Context, limit int) *news.Result
}

type NewspaperSource interface {
	Headlines(ctx context.Context, source string, limit int) *newspapers.Result
}

type AlertSender interface {
	Send(ctx context.Context, message, to string) *alert.Result
}

// Deps bundles every adapter a registry variant may need.
type Deps struct {
	Weather    WeatherSource
	News       NewsSource
	Newspapers NewspaperSource
	Alert      AlertSender
}

// ForVariant returns the tool list for a deployment variant. Unknown
// variants fall back to the full set.
func ForVariant(variant string, deps Deps) []tool.BaseTool {
	basic := []tool.BaseTool{
		createGetWeatherTool(deps.Weather),
		createGetNewsTool(deps.News),
	}
	if variant == VariantBasic {
		return basic
	}
	return append(basic,
		createGetNewspaperNewsTool(deps.Newspapers),
		createSendAlertTool(deps.Alert),
	)
}

// GetToolInfos collects the schemas of the given tools for model binding.
func GetToolInfos(ctx context.Context, tools []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("get tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// assistantTool implements tool.InvokableTool with a run function that
// cannot fail: every outcome, including bad arguments, is a result string.
type assistantTool struct {
	info *schema.ToolInfo
	run  func(ctx context.Context, argumentsInJSON string) string
}

func (t *assistantTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return t.info, nil
}

func (t *assistantTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	return t.run(ctx, argumentsInJSON), nil
}

var _ tool.InvokableTool = (*assistantTool)(nil)

// ClampNewsLimit applies the dispatch default and upper bound for news
// style limits.
func ClampNewsLimit(limit int) int {
	if limit <= 0 {
		return DefaultNewsLimit
	}
	if limit > MaxNewsLimit {
		return MaxNewsLimit
	}
	return limit
}

const badArgumentsMessage = "No he entendido los datos de la petición. Por favor, inténtalo otra vez."
