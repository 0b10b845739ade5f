package relay

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/chatrelay/relay/prompt"
	"github.com/chatrelay/relay/session"
	"github.com/chatrelay/relay/upstream"
)

const defaultSystemPrompt = "You are a helpful assistant."

// Config holds initialization parameters for all relay subsystems.
// Each subsystem section delegates to that subsystem's config-driven
// constructor.
type Config struct {
	Session  session.Config  `json:"session"`
	Prompt   prompt.Config   `json:"prompt"`
	Upstream upstream.Config `json:"upstream"`

	// APIKey is the server-side upstream credential, used when a request
	// carries none.
	APIKey string `json:"api_key,omitempty"`

	// SystemPrompt is the default system prompt for requests that name none.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// SystemPromptPath loads the default system prompt from a file at
	// startup. Takes precedence over SystemPrompt when the file exists.
	SystemPromptPath string `json:"system_prompt_path,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Session:      session.DefaultConfig(),
		Prompt:       prompt.DefaultConfig(),
		Upstream:     upstream.DefaultConfig(),
		SystemPrompt: defaultSystemPrompt,
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Session.Merge(&source.Session)
	c.Prompt.Merge(&source.Prompt)
	c.Upstream.Merge(&source.Upstream)

	if source.APIKey != "" {
		c.APIKey = source.APIKey
	}
	if source.SystemPrompt != "" {
		c.SystemPrompt = source.SystemPrompt
	}
	if source.SystemPromptPath != "" {
		c.SystemPromptPath = source.SystemPromptPath
	}
}

// LoadConfig reads a JSON config file, merges it with defaults, and returns
// the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

// resolveSystemPrompt returns the effective default system prompt,
// preferring the prompt file when configured and readable.
func (c *Config) resolveSystemPrompt() string {
	if c.SystemPromptPath != "" {
		if data, err := os.ReadFile(c.SystemPromptPath); err == nil {
			if text := strings.TrimSpace(string(data)); text != "" {
				return text
			}
		}
	}
	if c.SystemPrompt != "" {
		return c.SystemPrompt
	}
	return defaultSystemPrompt
}
