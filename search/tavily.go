package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const tavilyEndpoint = "https://api.tavily.com/search"

type tavilyRequest struct {
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	MaxResults     int      `json:"max_results"`
	IncludeAnswer  bool     `json:"include_answer"`
	IncludeImages  bool     `json:"include_images"`
	IncludeDomains []string `json:"include_domains"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (s *Service) tavilySearch(ctx context.Context, query string, maxResults int) ([]Result, error) {
	payload, err := json.Marshal(tavilyRequest{
		Query:          query,
		SearchDepth:    "basic",
		MaxResults:     maxResults,
		IncludeDomains: []string{},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tavilyURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.tavilyKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily status %d", resp.StatusCode)
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, item := range parsed.Results {
		if len(results) >= maxResults {
			break
		}
		title := item.Title
		if title == "" {
			title = item.URL
		}
		results = append(results, Result{
			Title:   title,
			URL:     item.URL,
			Content: strings.TrimSpace(item.Content),
		})
	}
	return results, nil
}
