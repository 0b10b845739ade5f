package server

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/chatrelay/relay/relay"
	"github.com/chatrelay/relay/search"
)

const (
	defaultAddr      = ":8001"
	defaultUploadDir = "uploads"
)

// Config holds initialization parameters for the HTTP server and every
// subsystem behind it.
type Config struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty"`

	// UploadDir is the directory uploaded files are stored in and served
	// from.
	UploadDir string `json:"upload_dir,omitempty"`

	Relay  relay.Config  `json:"relay"`
	Search search.Config `json:"search"`
}

// DefaultConfig returns a Config with sensible defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Addr:      defaultAddr,
		UploadDir: defaultUploadDir,
		Relay:     relay.DefaultConfig(),
		Search:    search.DefaultConfig(),
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Relay.Merge(&source.Relay)
	c.Search.Merge(&source.Search)

	if source.Addr != "" {
		c.Addr = source.Addr
	}
	if source.UploadDir != "" {
		c.UploadDir = source.UploadDir
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
