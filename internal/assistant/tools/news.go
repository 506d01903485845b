package tools

import (
	"context"
	"encoding/json"

	"github.com/cloudwego/eino/schema"

	"github.com/vayllon301/menteviva-backend/internal/adapters/news"
)

type getNewsInput struct {
	Limit int `json:"limit"`
}

func createGetNewsTool(src NewsSource) *assistantTool {
	return &assistantTool{
		info: &schema.ToolInfo{
			Name: ToolGetNews,
			Desc: "Obtiene las noticias más recientes de España. Úsala cuando el usuario pida noticias o actualidad en general.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"limit": {
					Type: "number",
					Desc: "Número máximo de noticias (por defecto 5, máximo 10).",
				},
			}),
		},
		run: func(ctx context.Context, argumentsInJSON string) string {
			var in getNewsInput
			if err := json.Unmarshal([]byte(argumentsInJSON), &in); err != nil {
				return badArgumentsMessage
			}
			return news.FormatForChat(src.TopHeadlines(ctx, ClampNewsLimit(in.Limit)))
		},
	}
}
