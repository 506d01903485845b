package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/vayllon301/menteviva-backend/internal/adapters/alert"
)

type sendAlertInput struct {
	Message string `json:"message"`
	To      string `json:"to"`
}

func createSendAlertTool(src AlertSender) *assistantTool {
	return &assistantTool{
		info: &schema.ToolInfo{
			Name: ToolSendAlert,
			Desc: "Envía un aviso por WhatsApp al contacto del usuario. Úsala solo cuando el usuario pida avisar a alguien o ante una urgencia real. El envío se realiza una única vez.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"message": {
					Type:     "string",
					Desc:     "Texto del aviso a enviar.",
					Required: true,
				},
				"to": {
					Type: "string",
					Desc: "Número de teléfono de destino. Si se omite, se usa el contacto configurado del usuario.",
				},
			}),
		},
		run: func(ctx context.Context, argumentsInJSON string) string {
			var in sendAlertInput
			if err := json.Unmarshal([]byte(argumentsInJSON), &in); err != nil {
				return badArgumentsMessage
			}
			if strings.TrimSpace(in.Message) == "" {
				return "No puedo enviar un aviso vacío. Dime qué mensaje quieres enviar."
			}
			return alert.FormatForChat(src.Send(ctx, in.Message, in.To))
		},
	}
}
