// Package relay implements the conversational core that composes session
// storage, prompt assembly, and the upstream completion client into the
// resolve/assemble/call/commit cycle behind the chat endpoints.
//
// The relay initializes from configuration via New, creating all subsystems
// internally. Functional options allow test overrides of any subsystem.
//
//	r, err := relay.New(&cfg)
//	resp, err := r.Chat(ctx, relay.Request{Message: "hello"})
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chatrelay/relay/core/protocol"
	"github.com/chatrelay/relay/observability"
	"github.com/chatrelay/relay/prompt"
	"github.com/chatrelay/relay/session"
	"github.com/chatrelay/relay/upstream"
)

// ClearAck is the fixed acknowledgement returned when a request asks for a
// session clear and carries no message.
const ClearAck = "Conversation history cleared."

// Request describes one chat invocation, blocking or streaming.
type Request struct {
	// Message is the user's message. Required unless Clear is set.
	Message string

	// SystemPrompt overrides the configured default system prompt.
	SystemPrompt string

	// SessionID names the conversation. Empty means a fresh session.
	SessionID string

	// Clear wipes the session history before handling the message. With an
	// empty Message the call short-circuits and returns ClearAck.
	Clear bool

	// APIKey is the caller-supplied upstream credential. Empty falls back
	// to the server-configured key.
	APIKey string

	// Model overrides the configured default model.
	Model string

	// Temperature is optional; nil leaves the upstream default.
	Temperature *float64

	// ShowThinking requests a high-effort reasoning pass upstream.
	ShowThinking bool
}

// Response holds the outcome of a blocking Chat invocation.
type Response struct {
	Reply     string
	SessionID string
}

// CompletionClient abstracts the upstream API for testability. The default
// implementation is *upstream.Client.
type CompletionClient interface {
	Complete(ctx context.Context, req upstream.Request) (string, error)
	Stream(ctx context.Context, req upstream.Request) *upstream.ChunkStream
}

// Option configures a Relay after config-driven initialization.
// Applied by New after cold start — overrides replace config-created defaults.
type Option func(*Relay)

// WithStore overrides the config-created session store.
func WithStore(s session.Store) Option {
	return func(r *Relay) { r.store = s }
}

// WithClient overrides the config-created completion client.
func WithClient(c CompletionClient) Option {
	return func(r *Relay) { r.client = c }
}

// WithAssembler overrides the config-created prompt assembler.
func WithAssembler(a *prompt.Assembler) Option {
	return func(r *Relay) { r.assembler = a }
}

// WithObserver overrides the default SlogObserver.
func WithObserver(o observability.Observer) Option {
	return func(r *Relay) { r.observer = o }
}

// Relay is the conversational core shared by the blocking and streaming
// chat endpoints. Safe for concurrent use.
type Relay struct {
	store        session.Store
	assembler    *prompt.Assembler
	client       CompletionClient
	observer     observability.Observer
	apiKey       string
	systemPrompt string
}

// New creates a Relay from configuration. Subsystems (store, assembler,
// client) are initialized from their respective config sections. Functional
// options applied after initialization can override any subsystem for
// testing.
func New(cfg *Config, opts ...Option) (*Relay, error) {
	observer := observability.NewSlogObserver(slog.Default())

	// Prompt assembly considers at most as many turns as the store retains.
	promptCfg := cfg.Prompt
	if cfg.Session.MaxTurns > 0 && cfg.Session.MaxTurns < promptCfg.MaxTurns {
		promptCfg.MaxTurns = cfg.Session.MaxTurns
	}

	store, err := session.New(&cfg.Session, observer)
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}

	r := &Relay{
		store:        store,
		assembler:    prompt.New(&promptCfg),
		client:       upstream.NewClient(&cfg.Upstream),
		observer:     observer,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.resolveSystemPrompt(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Close releases the underlying session store.
func (r *Relay) Close() error {
	return r.store.Close()
}

// call carries the resolved state of one request between preparation and
// the upstream phase.
type call struct {
	sessionID   string
	userMessage protocol.Message
	upstream    upstream.Request
	clearedOnly bool
}

// prepare resolves credentials and session, applies a requested clear, and
// assembles the outbound message list. A clear with no message yields a
// call with clearedOnly set and no upstream request.
func (r *Relay) prepare(ctx context.Context, req Request) (*call, error) {
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		key = r.apiKey
	}
	if key == "" {
		return nil, ErrMissingCredential
	}

	message := strings.TrimSpace(req.Message)
	if message == "" && !req.Clear {
		return nil, ErrEmptyMessage
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = session.NewID()
	}

	r.emit(ctx, EventRequestStart, observability.LevelInfo, map[string]any{
		"session_id":     sessionID,
		"message_length": len(message),
		"clear":          req.Clear,
	})

	if req.Clear {
		if err := r.store.Clear(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("failed to clear session: %w", err)
		}
		r.emit(ctx, EventSessionCleared, observability.LevelInfo, map[string]any{
			"session_id": sessionID,
		})
		if message == "" {
			return &call{sessionID: sessionID, clearedOnly: true}, nil
		}
	}

	history, err := r.store.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session history: %w", err)
	}

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = r.systemPrompt
	}

	messages := r.assembler.Assemble(systemPrompt, history, message)

	effort := ""
	if req.ShowThinking {
		effort = "high"
	}

	return &call{
		sessionID:   sessionID,
		userMessage: protocol.NewMessage(protocol.RoleUser, message),
		upstream: upstream.Request{
			APIKey:          key,
			Model:           req.Model,
			Messages:        messages,
			Temperature:     req.Temperature,
			ReasoningEffort: effort,
		},
	}, nil
}

// Chat handles one blocking exchange: resolve, assemble, call upstream,
// commit the turn, reply. Upstream errors pass through unwrapped so the
// transport can map them; a failed call commits nothing.
func (r *Relay) Chat(ctx context.Context, req Request) (*Response, error) {
	c, err := r.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if c.clearedOnly {
		return &Response{Reply: ClearAck, SessionID: c.sessionID}, nil
	}

	r.emit(ctx, EventUpstreamCall, observability.LevelDebug, map[string]any{
		"session_id": c.sessionID,
		"messages":   len(c.upstream.Messages),
		"streaming":  false,
	})

	reply, err := r.client.Complete(ctx, c.upstream)
	if err != nil {
		r.emit(ctx, EventError, observability.LevelWarning, map[string]any{
			"session_id": c.sessionID,
			"error":      err.Error(),
		})
		return nil, err
	}

	r.commitTurn(ctx, c, reply)

	r.emit(ctx, EventReply, observability.LevelInfo, map[string]any{
		"session_id":   c.sessionID,
		"reply_length": len(reply),
	})

	return &Response{Reply: reply, SessionID: c.sessionID}, nil
}

// commitTurn records the completed exchange. The commit survives caller
// disconnection: it runs on a context detached from cancellation. Commit
// failures are observed, not surfaced — the reply already exists.
func (r *Relay) commitTurn(ctx context.Context, c *call, reply string) {
	commitCtx := context.WithoutCancel(ctx)
	assistant := protocol.NewMessage(protocol.RoleAssistant, reply)
	if err := r.store.CommitTurn(commitCtx, c.sessionID, c.userMessage, assistant); err != nil {
		r.emit(commitCtx, EventError, observability.LevelError, map[string]any{
			"session_id": c.sessionID,
			"error":      fmt.Sprintf("failed to commit turn: %v", err),
		})
		return
	}
	r.emit(commitCtx, EventTurnCommitted, observability.LevelDebug, map[string]any{
		"session_id": c.sessionID,
	})
}

func (r *Relay) emit(ctx context.Context, eventType observability.EventType, level observability.Level, data map[string]any) {
	r.observer.OnEvent(ctx, observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "relay",
		Data:      data,
	})
}
