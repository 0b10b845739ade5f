package upstream

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "z-ai/glm-4.5-air:free"

	defaultCompleteTimeoutSeconds = 60
	defaultStreamTimeoutSeconds   = 300
)

// Config holds completion client initialization parameters.
type Config struct {
	// BaseURL is the API root; requests go to BaseURL + "/chat/completions".
	BaseURL string `json:"base_url,omitempty"`

	// Model is the default model sent when a request names none.
	Model string `json:"model,omitempty"`

	// CompleteTimeoutSeconds bounds the blocking call.
	CompleteTimeoutSeconds int `json:"complete_timeout_seconds,omitempty"`

	// StreamTimeoutSeconds bounds the streaming call end to end.
	StreamTimeoutSeconds int `json:"stream_timeout_seconds,omitempty"`
}

// DefaultConfig returns the default upstream configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:                defaultBaseURL,
		Model:                  defaultModel,
		CompleteTimeoutSeconds: defaultCompleteTimeoutSeconds,
		StreamTimeoutSeconds:   defaultStreamTimeoutSeconds,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.BaseURL != "" {
		c.BaseURL = source.BaseURL
	}
	if source.Model != "" {
		c.Model = source.Model
	}
	if source.CompleteTimeoutSeconds > 0 {
		c.CompleteTimeoutSeconds = source.CompleteTimeoutSeconds
	}
	if source.StreamTimeoutSeconds > 0 {
		c.StreamTimeoutSeconds = source.StreamTimeoutSeconds
	}
}
