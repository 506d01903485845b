package tools

import (
	"context"
	"encoding/json"

	"github.com/cloudwego/eino/schema"

	"github.com/vayllon301/menteviva-backend/internal/adapters/weather"
)

type getWeatherInput struct {
	City        string `json:"city"`
	CountryCode string `json:"country_code"`
}

func createGetWeatherTool(src WeatherSource) *assistantTool {
	return &assistantTool{
		info: &schema.ToolInfo{
			Name: ToolGetWeather,
			Desc: "Obtiene el tiempo actual de una ciudad: temperatura, sensación térmica, condiciones, humedad y viento. Úsala siempre que el usuario pregunte por el tiempo o el clima.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"city": {
					Type: "string",
					Desc: "Nombre de la ciudad. Si el usuario no la indica, se usa su ciudad por defecto.",
				},
				"country_code": {
					Type: "string",
					Desc: "Código de país de dos letras (por defecto ES).",
				},
			}),
		},
		run: func(ctx context.Context, argumentsInJSON string) string {
			var in getWeatherInput
			if err := json.Unmarshal([]byte(argumentsInJSON), &in); err != nil {
				return badArgumentsMessage
			}
			return weather.FormatForChat(src.Current(ctx, in.City, in.CountryCode))
		},
	}
}
