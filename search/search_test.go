package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newService(cfg Config, opts ...Option) *Service {
	base := DefaultConfig()
	base.Merge(&cfg)
	return New(&base, opts...)
}

func TestSearch_EmptyQuery(t *testing.T) {
	svc := newService(Config{})

	_, err := svc.Search(context.Background(), "   ", 5)
	if !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("error = %v, want ErrEmptyQuery", err)
	}
}

func TestSearch_Tavily(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tavily-key" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, `{"results":[
			{"title":"Go","url":"https://go.dev","content":"  The Go programming language.  "},
			{"title":"","url":"https://pkg.go.dev","content":"Packages"}
		]}`)
	}))
	defer server.Close()

	svc := newService(Config{TavilyAPIKey: "tavily-key"}, WithTavilyURL(server.URL))

	results, err := svc.Search(context.Background(), "golang", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Title != "Go" || results[0].Content != "The Go programming language." {
		t.Errorf("results[0] = %+v", results[0])
	}
	// Missing titles fall back to the URL.
	if results[1].Title != "https://pkg.go.dev" {
		t.Errorf("results[1].Title = %q, want URL fallback", results[1].Title)
	}
}

func TestSearch_TavilyCapsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var items []string
		for i := 0; i < 10; i++ {
			items = append(items, fmt.Sprintf(`{"title":"t%d","url":"u%d","content":"c"}`, i, i))
		}
		fmt.Fprintf(w, `{"results":[%s]}`, strings.Join(items, ","))
	}))
	defer server.Close()

	svc := newService(Config{TavilyAPIKey: "k"}, WithTavilyURL(server.URL))

	results, err := svc.Search(context.Background(), "q", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Errorf("got %d results, want 3", len(results))
	}
}

func TestSearch_FallsBackToDuckDuckGo(t *testing.T) {
	tavily := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer tavily.Close()

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>Result page body</p></body></html>")
	}))
	defer page.Close()

	ddg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "golang tutorial" {
			t.Errorf("q = %q", got)
		}
		fmt.Fprintf(w, `<div><a rel="nofollow" class="result__a" href="%s">A <b>Go</b> tutorial</a></div>`, page.URL)
	}))
	defer ddg.Close()

	svc := newService(Config{TavilyAPIKey: "k"},
		WithTavilyURL(tavily.URL),
		WithDuckDuckGoURL(ddg.URL),
	)

	results, err := svc.Search(context.Background(), "golang tutorial", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Title != "A Go tutorial" {
		t.Errorf("Title = %q", results[0].Title)
	}
	if results[0].URL != page.URL {
		t.Errorf("URL = %q", results[0].URL)
	}
	if results[0].Content != "Result page body" {
		t.Errorf("Content = %q", results[0].Content)
	}
}

func TestSearch_AllProvidersDownYieldsEmpty(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	down.Close()

	svc := newService(Config{TavilyAPIKey: "k"},
		WithTavilyURL(down.URL),
		WithDuckDuckGoURL(down.URL),
	)

	results, err := svc.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Search() error = %v, want graceful empty result", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestSearch_SnippetFetchFailureKeepsResult(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	ddg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<a class="result__a" href="%s">Unreachable page</a>`, dead.URL)
	}))
	defer ddg.Close()

	svc := newService(Config{}, WithDuckDuckGoURL(ddg.URL))

	results, err := svc.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Content != "" {
		t.Errorf("Content = %q, want empty on fetch failure", results[0].Content)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"tags", "<p>Hello <b>world</b></p>", "Hello world"},
		{"script dropped", "<script>var x = 1;</script>text", "text"},
		{"style dropped", "<style>body { color: red }</style>text", "text"},
		{"whitespace collapsed", "a\n\n  b\t c", "a b c"},
		{"plain text", "already plain", "already plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripHTML(tt.input); got != tt.want {
				t.Errorf("stripHTML(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
