// Package search implements the web search endpoint's backend: a Tavily
// API client with a DuckDuckGo HTML-scrape fallback for keyless setups.
package search

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/chatrelay/relay/observability"
)

// ErrEmptyQuery rejects a search with no query text.
var ErrEmptyQuery = errors.New("query is required")

const defaultMaxResults = 5

// Search event types.
const (
	EventQuery         observability.EventType = "search.query"
	EventProviderError observability.EventType = "search.provider.error"
)

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Service answers search queries. Tavily is used when a key is configured;
// provider failures degrade to the fallback rather than surfacing, so a
// broken provider yields an empty result list, not an error.
type Service struct {
	tavilyKey     string
	tavilyURL     string
	duckduckgoURL string
	maxResults    int
	httpClient    *http.Client
	pageClient    *http.Client
	observer      observability.Observer
}

// Option configures a Service after config-driven initialization.
type Option func(*Service)

// WithHTTPClient overrides the provider HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		s.httpClient = c
		s.pageClient = c
	}
}

// WithTavilyURL overrides the Tavily endpoint.
func WithTavilyURL(url string) Option {
	return func(s *Service) { s.tavilyURL = url }
}

// WithDuckDuckGoURL overrides the DuckDuckGo HTML endpoint.
func WithDuckDuckGoURL(url string) Option {
	return func(s *Service) { s.duckduckgoURL = url }
}

// WithObserver overrides the default NoOpObserver.
func WithObserver(o observability.Observer) Option {
	return func(s *Service) { s.observer = o }
}

// New creates a Service from configuration.
func New(cfg *Config, opts ...Option) *Service {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	s := &Service{
		tavilyKey:     cfg.TavilyAPIKey,
		tavilyURL:     tavilyEndpoint,
		duckduckgoURL: duckduckgoEndpoint,
		maxResults:    cfg.MaxResults,
		httpClient:    &http.Client{Timeout: timeout},
		pageClient:    &http.Client{Timeout: pageFetchTimeout},
		observer:      observability.NoOpObserver{},
	}
	if s.maxResults <= 0 {
		s.maxResults = defaultMaxResults
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs the query and returns up to maxResults hits. A non-positive
// maxResults uses the configured default.
func (s *Service) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	s.observer.OnEvent(ctx, observability.Event{
		Type:      EventQuery,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "search",
		Data:      map[string]any{"query_length": len(query), "max_results": maxResults},
	})

	var results []Result
	if s.tavilyKey != "" {
		hits, err := s.tavilySearch(ctx, query, maxResults)
		if err != nil {
			s.observeProviderError(ctx, "tavily", err)
		}
		results = hits
	}

	if len(results) == 0 {
		hits, err := s.duckduckgoSearch(ctx, query, maxResults)
		if err != nil {
			s.observeProviderError(ctx, "duckduckgo", err)
		}
		results = hits
	}

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

func (s *Service) observeProviderError(ctx context.Context, provider string, err error) {
	s.observer.OnEvent(ctx, observability.Event{
		Type:      EventProviderError,
		Level:     observability.LevelWarning,
		Timestamp: time.Now(),
		Source:    "search",
		Data:      map[string]any{"provider": provider, "error": err.Error()},
	})
}
