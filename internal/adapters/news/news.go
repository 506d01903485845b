// Package news wraps the NewsAPI top-headlines endpoint for Spain.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vayllon301/menteviva-backend/internal/cache"
	logx "github.com/vayllon301/menteviva-backend/pkg/logger"
)

const DefaultLimit = 5

type Config struct {
	APIKey         string `envconfig:"NEWS_API_KEY"`
	BaseURL        string `envconfig:"NEWS_API_URL" default:"https://newsapi.org/v2/top-headlines"`
	TimeoutSeconds int    `envconfig:"NEWS_TIMEOUT_SECONDS" default:"10"`
}

// Item is one headline.
type Item struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
	Image       string `json:"image,omitempty"`
}

// Result is the uniform adapter outcome.
type Result struct {
	Error string `json:"error,omitempty"`
	Total int    `json:"total"`
	News  []Item `json:"news"`
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

type payload struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		URLToImage  string `json:"urlToImage"`
	} `json:"articles"`
}

// TopHeadlines fetches up to limit recent Spanish headlines. A missing API
// key short-circuits before any network call.
func (c *Client) TopHeadlines(ctx context.Context, limit int) *Result {
	if limit <= 0 {
		limit = DefaultLimit
	}

	if c.cfg.APIKey == "" {
		return &Result{
			Error: "No se ha configurado NEWS_API_KEY en las variables de entorno",
			News:  []Item{},
		}
	}

	key := cache.Key("news", strconv.Itoa(limit))
	if raw, ok := c.cache.Get(ctx, key); ok {
		var cached Result
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return &cached
		}
	}

	q := url.Values{}
	q.Set("country", "es")
	q.Set("apiKey", c.cfg.APIKey)
	q.Set("pageSize", strconv.Itoa(limit))
	q.Set("language", "es")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return &Result{Error: fmt.Sprintf("Error al preparar la petición a NewsAPI: %v", err), News: []Item{}}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Result{Error: fmt.Sprintf("Error al conectar con NewsAPI: %v", err), News: []Item{}}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Result{Error: fmt.Sprintf("Error al leer la respuesta de NewsAPI: %v", err), News: []Item{}}
	}

	var data payload
	if err := json.Unmarshal(body, &data); err != nil {
		return &Result{Error: "Respuesta inesperada de NewsAPI", News: []Item{}}
	}

	if data.Status != "ok" {
		msg := data.Message
		if msg == "" {
			msg = fmt.Sprintf("Error desconocido (HTTP %d)", resp.StatusCode)
		}
		return &Result{Error: fmt.Sprintf("Error en la respuesta de NewsAPI: %s", msg), News: []Item{}}
	}

	items := make([]Item, 0, len(data.Articles))
	for _, a := range data.Articles {
		items = append(items, Item{
			Title:       valueOr(a.Title, "Sin título"),
			Description: a.Description,
			Source:      valueOr(a.Source.Name, "Fuente desconocida"),
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
			Image:       a.URLToImage,
		})
	}

	result := &Result{Total: len(items), News: items}
	if b, err := json.Marshal(result); err == nil {
		c.cache.Set(ctx, key, string(b))
	} else {
		logx.Warn().Err(err).Msg("failed to marshal news result for cache")
	}
	return result
}

// FormatForChat renders headlines as a numbered digest. Error results become
// a plain apology with no technical detail.
func FormatForChat(r *Result) string {
	if r == nil || r.Error != "" {
		return "Lo siento, ahora mismo no puedo consultar las noticias. Inténtalo de nuevo dentro de un rato."
	}
	if len(r.News) == 0 {
		return "No se encontraron noticias recientes de España en este momento."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Noticias recientes de España (%d noticias):\n\n", r.Total)
	for i, n := range r.News {
		fmt.Fprintf(&b, "%d. %s\n", i+1, n.Title)
		if n.Description != "" {
			fmt.Fprintf(&b, "   %s\n", n.Description)
		}
		fmt.Fprintf(&b, "   Fuente: %s\n", n.Source)
		if n.PublishedAt != "" {
			fmt.Fprintf(&b, "   Fecha: %s\n", formatDate(n.PublishedAt))
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// formatDate renders an RFC3339 timestamp as dd/mm/yyyy hh:mm, keeping the
// raw string when parsing fails.
func formatDate(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.Format("02/01/2006 15:04")
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
