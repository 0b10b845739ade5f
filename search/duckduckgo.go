package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	duckduckgoEndpoint = "https://duckduckgo.com/html/"

	// pageFetchTimeout bounds the per-result page fetch used to extract
	// content snippets.
	pageFetchTimeout = 10 * time.Second

	// maxSnippetChars caps the stripped page text returned per result.
	maxSnippetChars = 2000

	userAgent = "Mozilla/5.0"
)

var (
	resultLinkRE = regexp.MustCompile(`(?is)<a[^>]+class="result__a"[^>]*href="([^"]+)"[^>]*>(.*?)</a>`)

	scriptRE     = regexp.MustCompile(`(?is)<script[\s\S]*?</script>`)
	styleRE      = regexp.MustCompile(`(?is)<style[\s\S]*?</style>`)
	tagRE        = regexp.MustCompile(`<[^>]+>`)
	whitespaceRE = regexp.MustCompile(`\s+`)
)

// duckduckgoSearch scrapes the DuckDuckGo HTML results page and fetches
// each hit to build a content snippet. Per-page fetch failures leave the
// snippet empty rather than dropping the result.
func (s *Service) duckduckgoSearch(ctx context.Context, query string, maxResults int) ([]Result, error) {
	endpoint := s.duckduckgoURL + "?q=" + url.QueryEscape(query)
	body, err := s.fetch(ctx, s.httpClient, endpoint)
	if err != nil {
		return nil, err
	}

	matches := resultLinkRE.FindAllStringSubmatch(string(body), -1)

	var results []Result
	for _, match := range matches {
		if len(results) >= maxResults {
			break
		}
		href, titleHTML := match[1], match[2]
		results = append(results, Result{
			Title:   stripHTML(titleHTML),
			URL:     href,
			Content: s.fetchSnippet(ctx, href),
		})
	}
	return results, nil
}

// fetchSnippet pulls the result page and returns its stripped text, capped.
// Failures yield an empty snippet.
func (s *Service) fetchSnippet(ctx context.Context, pageURL string) string {
	body, err := s.fetch(ctx, s.pageClient, pageURL)
	if err != nil {
		return ""
	}
	text := stripHTML(string(body))
	if len(text) > maxSnippetChars {
		text = text[:maxSnippetChars]
	}
	return text
}

func (s *Service) fetch(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// stripHTML reduces markup to whitespace-normalized text. Crude by intent:
// search snippets need legibility, not fidelity.
func stripHTML(text string) string {
	text = scriptRE.ReplaceAllString(text, " ")
	text = styleRE.ReplaceAllString(text, " ")
	text = tagRE.ReplaceAllString(text, " ")
	text = whitespaceRE.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
