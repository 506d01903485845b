// Package newspapers fetches front-page headlines from El País and El Mundo
// through their public RSS feeds.
package newspapers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/vayllon301/menteviva-backend/internal/cache"
	logx "github.com/vayllon301/menteviva-backend/pkg/logger"
)

const (
	SourceBoth    = "both"
	SourceElPais  = "elpais"
	SourceElMundo = "elmundo"

	DefaultLimit = 5

	elPaisName  = "El País"
	elMundoName = "El Mundo"
)

type Config struct {
	ElPaisRSS      string `envconfig:"ELPAIS_RSS_URL" default:"https://feeds.elpais.com/mrss-s/pages/ep/site/elpais.com/portada"`
	ElMundoRSS     string `envconfig:"ELMUNDO_RSS_URL" default:"https://e00-elmundo.uecdn.es/elmundo/rss/portada.xml"`
	TimeoutSeconds int    `envconfig:"NEWSPAPERS_TIMEOUT_SECONDS" default:"10"`
}

// Item is one headline entry from a feed.
type Item struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`

	published time.Time
}

// Result is the uniform adapter outcome.
type Result struct {
	Error     string `json:"error,omitempty"`
	Total     int    `json:"total"`
	FetchedAt string `json:"fetched_at,omitempty"`
	News      []Item `json:"news"`
}

type Client struct {
	cfg    Config
	parser *gofeed.Parser
	cache  cache.Store
	now    func() time.Time
}

func New(cfg Config, store cache.Store) *Client {
	if store == nil {
		store = cache.Noop{}
	}
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	return &Client{cfg: cfg, parser: p, cache: store, now: time.Now}
}

// Headlines fetches headlines for the requested source ("both", "elpais" or
// "elmundo"), limit entries per feed, merged newest first.
func (c *Client) Headlines(ctx context.Context, source string, limit int) *Result {
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		source = SourceBoth
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	key := cache.Key("newspapers", source, strconv.Itoa(limit))
	if raw, ok := c.cache.Get(ctx, key); ok {
		var cached Result
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return &cached
		}
	}

	var items []Item
	switch source {
	case SourceElPais:
		items = c.fetchFeed(ctx, c.cfg.ElPaisRSS, elPaisName, limit)
	case SourceElMundo:
		items = c.fetchFeed(ctx, c.cfg.ElMundoRSS, elMundoName, limit)
	case SourceBoth:
		items = append(
			c.fetchFeed(ctx, c.cfg.ElPaisRSS, elPaisName, limit),
			c.fetchFeed(ctx, c.cfg.ElMundoRSS, elMundoName, limit)...,
		)
	default:
		return &Result{
			Error: fmt.Sprintf("Fuente no reconocida: %s. Use 'elpais', 'elmundo' o 'both'", source),
			News:  []Item{},
		}
	}

	// Newest first; entries without a parseable date sink to the end in
	// their feed order.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].published.After(items[j].published)
	})

	result := &Result{
		Total:     len(items),
		FetchedAt: c.now().Format("02/01/2006 15:04"),
		News:      items,
	}
	if len(items) > 0 {
		if b, err := json.Marshal(result); err == nil {
			c.cache.Set(ctx, key, string(b))
		}
	}
	return result
}

func (c *Client) fetchFeed(ctx context.Context, url, sourceName string, limit int) []Item {
	feed, err := c.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		logx.Warn().Err(err).Str("source", sourceName).Msg("failed to fetch RSS feed")
		return nil
	}

	entries := feed.Items
	if len(entries) > limit {
		entries = entries[:limit]
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			continue
		}
		it := Item{
			Title:       valueOr(e.Title, "Sin título"),
			Description: stripHTML(e.Description),
			Source:      sourceName,
			URL:         e.Link,
			PublishedAt: e.Published,
		}
		if e.PublishedParsed != nil {
			it.published = *e.PublishedParsed
			it.PublishedAt = e.PublishedParsed.Format("02/01/2006 15:04")
		}
		items = append(items, it)
	}
	return items
}

// FormatForChat renders merged headlines as a digest with the current
// Spanish date for context. Error results become a plain apology.
func FormatForChat(r *Result) string {
	if r == nil || r.Error != "" {
		return "Lo siento, ahora mismo no puedo consultar los periódicos. Inténtalo de nuevo dentro de un rato."
	}
	if len(r.News) == 0 {
		return "No se encontraron noticias recientes en este momento."
	}

	var b strings.Builder
	b.WriteString("Noticias de El País y El Mundo\n")
	fmt.Fprintf(&b, "Total de noticias: %d\n\n", r.Total)
	for i, n := range r.News {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, n.Source, n.Title)
		if n.Description != "" {
			fmt.Fprintf(&b, "   %s\n", truncate(n.Description, 200))
		}
		if n.PublishedAt != "" {
			fmt.Fprintf(&b, "   Fecha: %s\n", n.PublishedAt)
		}
		fmt.Fprintf(&b, "   %s\n\n", n.URL)
	}
	return strings.TrimSpace(b.String())
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes markup that some feeds embed in their summaries.
func stripHTML(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
