// Package weather wraps the WeatherAPI.com current-conditions endpoint.
// Failures never surface as Go errors: every call yields a Result whose
// Error field carries a human-readable Spanish message, so the conversation
// loop can hand it straight to the model.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/vayllon301/menteviva-backend/internal/cache"
	logx "github.com/vayllon301/menteviva-backend/pkg/logger"
)

const (
	DefaultCity    = "Madrid"
	DefaultCountry = "ES"
)

type Config struct {
	APIKey         string `envconfig:"WEATHER_API_KEY"`
	BaseURL        string `envconfig:"WEATHER_API_URL" default:"http://api.weatherapi.com/v1/current.json"`
	TimeoutSeconds int    `envconfig:"WEATHER_TIMEOUT_SECONDS" default:"10"`
}

// Reading is one current-conditions observation.
type Reading struct {
	City        string  `json:"city"`
	Country     string  `json:"country"`
	Temperature int     `json:"temperature"`
	FeelsLike   int     `json:"feels_like"`
	Description string  `json:"description"`
	Humidity    int     `json:"humidity"`
	Pressure    int     `json:"pressure"`
	WindSpeed   float64 `json:"wind_speed"`
	UpdatedAt   string  `json:"updated_at,omitempty"`
}

// Result is the uniform adapter outcome: either Weather or Error is set.
type Result struct {
	Error   string   `json:"error,omitempty"`
	Weather *Reading `json:"weather"`
}

type Client struct {
	cfg   Config
	http  *http.Client
	cache cache.Store
}

func New(cfg Config, store cache.Store) *Client {
	if store == nil {
		store = cache.Noop{}
	}
	return &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		cache: store,
	}
}

// payload mirrors the WeatherAPI.com response shape.
type payload struct {
	Location struct {
		Name      string `json:"name"`
		Country   string `json:"country"`
		Localtime string `json:"localtime"`
	} `json:"location"`
	Current struct {
		TempC      float64 `json:"temp_c"`
		FeelsLikeC float64 `json:"feelslike_c"`
		Humidity   int     `json:"humidity"`
		PressureMb float64 `json:"pressure_mb"`
		WindKph    float64 `json:"wind_kph"`
		Condition  struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Current fetches the current conditions for a city. Empty arguments fall
// back to Madrid, ES. A missing API key short-circuits before any network
// call.
func (c *Client) Current(ctx context.Context, city, country string) *Result {
	city = strings.TrimSpace(city)
	if city == "" {
		city = DefaultCity
	}
	country = strings.TrimSpace(country)
	if country == "" {
		country = DefaultCountry
	}

	if c.cfg.APIKey == "" {
		return &Result{Error: "No se ha configurado WEATHER_API_KEY en las variables de entorno"}
	}

	key := cache.Key("weather", strings.ToLower(city), strings.ToUpper(country))
	if raw, ok := c.cache.Get(ctx, key); ok {
		var cached Result
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return &cached
		}
	}

	q := url.Values{}
	q.Set("key", c.cfg.APIKey)
	q.Set("q", fmt.Sprintf("%s,%s", city, country))
	q.Set("lang", "es")
	q.Set("aqi", "no")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return &Result{Error: fmt.Sprintf("Error al preparar la petición a WeatherAPI: %v", err)}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Result{Error: fmt.Sprintf("Error al conectar con WeatherAPI: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Result{Error: fmt.Sprintf("Error al leer la respuesta de WeatherAPI: %v", err)}
	}

	var data payload
	if err := json.Unmarshal(body, &data); err != nil {
		return &Result{Error: "Respuesta inesperada de WeatherAPI"}
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		msg := data.Error.Message
		if msg == "" {
			msg = "Solicitud inválida"
		}
		return &Result{Error: fmt.Sprintf("No se encontró la ciudad '%s'. %s", city, msg)}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &Result{Error: "API key inválida. Por favor, verifica WEATHER_API_KEY en las variables de entorno."}
	case resp.StatusCode != http.StatusOK:
		return &Result{Error: fmt.Sprintf("Error HTTP %d al conectar con WeatherAPI", resp.StatusCode)}
	}

	reading := &Reading{
		City:        valueOr(data.Location.Name, city),
		Country:     valueOr(data.Location.Country, country),
		Temperature: int(math.Round(data.Current.TempC)),
		FeelsLike:   int(math.Round(data.Current.FeelsLikeC)),
		Description: capitalize(data.Current.Condition.Text),
		Humidity:    data.Current.Humidity,
		Pressure:    int(math.Round(data.Current.PressureMb)),
		WindSpeed:   math.Round(data.Current.WindKph*10) / 10,
		UpdatedAt:   data.Location.Localtime,
	}
	result := &Result{Weather: reading}

	if b, err := json.Marshal(result); err == nil {
		c.cache.Set(ctx, key, string(b))
	} else {
		logx.Warn().Err(err).Msg("failed to marshal weather result for cache")
	}
	return result
}

// FormatForChat renders a reading as a compact digest the model can retell.
// Error results become a plain apology with no technical detail.
func FormatForChat(r *Result) string {
	if r == nil || r.Error != "" || r.Weather == nil {
		return "Lo siento, ahora mismo no puedo consultar el tiempo. Inténtalo de nuevo dentro de un rato."
	}

	w := r.Weather
	var b strings.Builder
	fmt.Fprintf(&b, "Ciudad: %s, %s\n", w.City, w.Country)
	fmt.Fprintf(&b, "Temperatura: %d°C (sensación térmica: %d°C)\n", w.Temperature, w.FeelsLike)
	fmt.Fprintf(&b, "Condiciones: %s\n", w.Description)
	fmt.Fprintf(&b, "Humedad: %d%%\n", w.Humidity)
	fmt.Fprintf(&b, "Viento: %.1f km/h", w.WindSpeed)
	if w.UpdatedAt != "" {
		fmt.Fprintf(&b, "\nÚltima actualización: %s", w.UpdatedAt)
	}
	return b.String()
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func capitalize(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) == 0 {
		return ""
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
