package prompt

const (
	defaultMaxTurns       = 25
	defaultMaxPromptChars = 12000
)

// Config holds prompt assembly parameters.
type Config struct {
	// MaxTurns caps how many retained exchanges assembly considers.
	// Should match the session store's retention limit.
	MaxTurns int `json:"max_turns,omitempty"`

	// MaxPromptChars bounds the total character count of history included
	// in an outbound request. Clamped to MinPromptChars.
	MaxPromptChars int `json:"max_prompt_chars,omitempty"`

	// ReasoningGuide appends a fixed reasoning-summary instruction to the
	// system prompt.
	ReasoningGuide bool `json:"reasoning_guide,omitempty"`
}

// DefaultConfig returns the default prompt configuration.
func DefaultConfig() Config {
	return Config{
		MaxTurns:       defaultMaxTurns,
		MaxPromptChars: defaultMaxPromptChars,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.MaxTurns > 0 {
		c.MaxTurns = source.MaxTurns
	}
	if source.MaxPromptChars > 0 {
		c.MaxPromptChars = source.MaxPromptChars
	}
	if source.ReasoningGuide {
		c.ReasoningGuide = true
	}
}
