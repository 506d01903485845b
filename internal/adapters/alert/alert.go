// Package alert sends WhatsApp messages to a caregiver through the Twilio
// messages API. Sending happens exactly once per call: no retry, no
// deduplication.
package alert

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type Config struct {
	AccountSID   string `envconfig:"TWILIO_ACCOUNT_SID"`
	AuthToken    string `envconfig:"TWILIO_AUTH_TOKEN"`
	WhatsAppFrom string `envconfig:"TWILIO_WHATSAPP_FROM"`
	WhatsAppTo   string `envconfig:"TWILIO_WHATSAPP_TO"`
}

// Delivery describes one accepted alert.
type Delivery struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

// Result is the uniform adapter outcome.
type Result struct {
	Error string    `json:"error,omitempty"`
	Alert *Delivery `json:"alert"`
}

// messageCreator is the slice of the Twilio client the adapter needs;
// *openapi.ApiService satisfies it.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

type Client struct {
	cfg Config
	api messageCreator
}

func New(cfg Config) *Client {
	c := &Client{cfg: cfg}
	if cfg.AccountSID != "" && cfg.AuthToken != "" {
		rc := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
		c.api = rc.Api
	}
	return c
}

// NewWithAPI injects a custom message creator; used by tests.
func NewWithAPI(cfg Config, api messageCreator) *Client {
	return &Client{cfg: cfg, api: api}
}

// Send delivers one WhatsApp message. An empty recipient falls back to the
// configured TWILIO_WHATSAPP_TO. Missing credentials short-circuit before
// any network call.
func (c *Client) Send(ctx context.Context, message, to string) *Result {
	if c.cfg.AccountSID == "" || c.cfg.AuthToken == "" || c.api == nil {
		return &Result{Error: "No se han configurado TWILIO_ACCOUNT_SID y/o TWILIO_AUTH_TOKEN"}
	}
	if c.cfg.WhatsAppFrom == "" {
		return &Result{Error: "No se ha configurado TWILIO_WHATSAPP_FROM"}
	}

	recipient := strings.TrimSpace(to)
	if recipient == "" {
		recipient = c.cfg.WhatsAppTo
	}
	if recipient == "" {
		return &Result{Error: "No se ha proporcionado un número de destino ni se ha configurado TWILIO_WHATSAPP_TO"}
	}

	sender := ensureWhatsAppPrefix(c.cfg.WhatsAppFrom)
	recipient = ensureWhatsAppPrefix(recipient)

	params := &openapi.CreateMessageParams{}
	params.SetFrom(sender)
	params.SetTo(recipient)
	params.SetBody(message)

	msg, err := c.api.CreateMessage(params)
	if err != nil {
		return &Result{Error: fmt.Sprintf("Error de Twilio: %v", err)}
	}

	delivery := &Delivery{
		Recipient: recipient,
		Message:   message,
	}
	if msg.Sid != nil {
		delivery.ID = *msg.Sid
	}
	if msg.Status != nil {
		delivery.Status = *msg.Status
	}
	return &Result{Alert: delivery}
}

// FormatForChat turns a send outcome into text the model can relay.
func FormatForChat(r *Result) string {
	if r == nil || r.Error != "" || r.Alert == nil {
		return "Lo siento, no he podido enviar el aviso en este momento. Inténtalo de nuevo dentro de un rato."
	}
	return fmt.Sprintf("Aviso enviado correctamente a %s (estado: %s).", r.Alert.Recipient, r.Alert.Status)
}

func ensureWhatsAppPrefix(number string) string {
	if !strings.HasPrefix(number, "whatsapp:") {
		return "whatsapp:" + number
	}
	return number
}
