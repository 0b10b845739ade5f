// Package server wires the relay core, the search service, and upload
// storage into the HTTP API: blocking and streaming chat, web search, file
// uploads, and health.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/chatrelay/relay/observability"
	"github.com/chatrelay/relay/relay"
	"github.com/chatrelay/relay/search"
	"github.com/chatrelay/relay/uploads"
)

// Server is the HTTP front end for the relay.
type Server struct {
	relay    *relay.Relay
	search   *search.Service
	uploads  *uploads.Store
	observer observability.Observer
	mux      *http.ServeMux
	addr     string
}

// Option configures a Server after config-driven initialization.
type Option func(*Server)

// WithRelay overrides the config-created relay core.
func WithRelay(r *relay.Relay) Option {
	return func(s *Server) { s.relay = r }
}

// WithSearch overrides the config-created search service.
func WithSearch(svc *search.Service) Option {
	return func(s *Server) { s.search = svc }
}

// WithUploads overrides the config-created upload store.
func WithUploads(store *uploads.Store) Option {
	return func(s *Server) { s.uploads = store }
}

// WithObserver overrides the default SlogObserver.
func WithObserver(o observability.Observer) Option {
	return func(s *Server) { s.observer = o }
}

// New creates a Server from configuration. Functional options are applied
// first; any subsystem they leave unset is then initialized from its
// config section, so an override never causes a config-created subsystem
// to be built and abandoned.
func New(cfg *Config, opts ...Option) (*Server, error) {
	s := &Server{
		observer: observability.NewSlogObserver(slog.Default()),
		addr:     cfg.Addr,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.relay == nil {
		core, err := relay.New(&cfg.Relay, relay.WithObserver(s.observer))
		if err != nil {
			return nil, err
		}
		s.relay = core
	}
	if s.search == nil {
		s.search = search.New(&cfg.Search, search.WithObserver(s.observer))
	}
	if s.uploads == nil {
		store, err := uploads.NewStore(cfg.UploadDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create upload store: %w", err)
		}
		s.uploads = store
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("POST /chat", s.handleChat)
	s.mux.HandleFunc("POST /chat/stream", s.handleChatStream)
	s.mux.HandleFunc("POST /websearch", s.handleWebSearch)
	s.mux.HandleFunc("POST /upload", s.handleUpload)
	s.mux.HandleFunc("GET /uploads/{name}", s.handleUploadGet)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	return s, nil
}

// Run starts the server on the configured address.
func (s *Server) Run() error {
	slog.Info("relay listening", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}

// RunWithListener starts the server using the provided listener.
func (s *Server) RunWithListener(l net.Listener) error {
	slog.Info("relay listening", "addr", l.Addr())
	return http.Serve(l, s.Handler())
}

// Handler returns the full HTTP handler, CORS included. Useful for tests.
func (s *Server) Handler() http.Handler {
	return withCORS(s.mux)
}

// Close releases the relay core and its session store.
func (s *Server) Close() error {
	return s.relay.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) observe(ctx context.Context, eventType observability.EventType, level observability.Level, data map[string]any) {
	s.observer.OnEvent(ctx, observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "server",
		Data:      data,
	})
}
