package search

const defaultTimeoutSeconds = 30

// Config holds search service initialization parameters.
type Config struct {
	// TavilyAPIKey enables the Tavily provider. Empty means DuckDuckGo only.
	TavilyAPIKey string `json:"tavily_api_key,omitempty"`

	// MaxResults is the default result cap when a request names none.
	MaxResults int `json:"max_results,omitempty"`

	// TimeoutSeconds bounds each provider call.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// DefaultConfig returns the default search configuration.
func DefaultConfig() Config {
	return Config{
		MaxResults:     defaultMaxResults,
		TimeoutSeconds: defaultTimeoutSeconds,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.TavilyAPIKey != "" {
		c.TavilyAPIKey = source.TavilyAPIKey
	}
	if source.MaxResults > 0 {
		c.MaxResults = source.MaxResults
	}
	if source.TimeoutSeconds > 0 {
		c.TimeoutSeconds = source.TimeoutSeconds
	}
}
