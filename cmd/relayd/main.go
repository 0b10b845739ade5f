package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/chatrelay/relay/observability"
	"github.com/chatrelay/relay/server"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to config JSON file (optional)")
		addr       = flag.String("addr", "", "Listen address (overrides config)")
		model      = flag.String("model", "", "Default upstream model (overrides config)")
		uploadDir  = flag.String("upload-dir", "", "Upload directory (overrides config)")
		logFile    = flag.String("log-json", "", "Also write events as JSON lines to this file")
		verbose    = flag.Bool("verbose", false, "Enable debug logging to stderr")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	var observer observability.Observer = observability.NewSlogObserver(slog.Default())
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		jsonObserver := observability.NewSlogObserver(slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{
			Level: level,
		})))
		observer = observability.NewMultiObserver(observer, jsonObserver)
	}

	cfg := server.DefaultConfig()
	if *configFile != "" {
		loaded, err := server.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}

	applyEnv(&cfg)

	if *addr != "" {
		cfg.Addr = *addr
	}
	if *model != "" {
		cfg.Relay.Upstream.Model = *model
	}
	if *uploadDir != "" {
		cfg.UploadDir = *uploadDir
	}

	if cfg.Relay.APIKey == "" {
		slog.Warn("no upstream API key configured; requests must carry their own")
	}

	s, err := server.New(&cfg, server.WithObserver(observer))
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	defer s.Close()

	if err := s.Run(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// applyEnv layers environment overrides on top of file config. Env wins
// over file, flags win over env.
func applyEnv(cfg *server.Config) {
	cfg.Addr = envOrDefault("RELAY_ADDR", cfg.Addr)
	cfg.UploadDir = envOrDefault("RELAY_UPLOAD_DIR", cfg.UploadDir)

	cfg.Relay.APIKey = envOrDefault("OPENROUTER_API_KEY", cfg.Relay.APIKey)
	cfg.Relay.SystemPromptPath = envOrDefault("SYSTEM_PROMPT_PATH", cfg.Relay.SystemPromptPath)
	cfg.Relay.Upstream.BaseURL = envOrDefault("OPENROUTER_BASE_URL", cfg.Relay.Upstream.BaseURL)
	cfg.Relay.Upstream.Model = envOrDefault("OPENROUTER_MODEL", cfg.Relay.Upstream.Model)

	cfg.Relay.Session.Driver = envOrDefault("SESSION_DRIVER", cfg.Relay.Session.Driver)
	cfg.Relay.Session.SnapshotPath = envOrDefault("SESSION_STORE_PATH", cfg.Relay.Session.SnapshotPath)
	cfg.Relay.Session.RedisAddr = envOrDefault("SESSION_REDIS_ADDR", cfg.Relay.Session.RedisAddr)
	cfg.Relay.Session.SQLitePath = envOrDefault("SESSION_SQLITE_PATH", cfg.Relay.Session.SQLitePath)

	cfg.Search.TavilyAPIKey = envOrDefault("TAVILY_API_KEY", cfg.Search.TavilyAPIKey)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
