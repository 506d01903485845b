package tools

import (
	"context"
	"encoding/json"

	"github.com/cloudwego/eino/schema"

	"github.com/vayllon301/menteviva-backend/internal/adapters/newspapers"
)

type getNewspaperNewsInput struct {
	Source string `json:"source"`
	Limit  int    `json:"limit"`
}

func createGetNewspaperNewsTool(src NewspaperSource) *assistantTool {
	return &assistantTool{
		info: &schema.ToolInfo{
			Name: ToolGetNewspaperNews,
			Desc: "Obtiene los titulares de portada de El País y El Mundo. Úsala cuando el usuario pregunte por un periódico concreto o por la prensa.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"source": {
					Type: "string",
					Desc: "Periódico a consultar: 'elpais', 'elmundo' o 'both' (por defecto both).",
				},
				"limit": {
					Type: "number",
					Desc: "Número de titulares por periódico (por defecto 5, máximo 10).",
				},
			}),
		},
		run: func(ctx context.Context, argumentsInJSON string) string {
			var in getNewspaperNewsInput
			if err := json.Unmarshal([]byte(argumentsInJSON), &in); err != nil {
				return badArgumentsMessage
			}
			return newspapers.FormatForChat(src.Headlines(ctx, in.Source, ClampNewsLimit(in.Limit)))
		},
	}
}
