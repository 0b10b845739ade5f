// Package upstream implements the client for the remote chat-completion
// API: a blocking Complete call and a streaming Stream call with
// retry/backoff on stream establishment.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/chatrelay/relay/core/protocol"
)

// Request describes one chat-completion call.
type Request struct {
	// APIKey is the bearer credential for this call.
	APIKey string

	// Model overrides the configured default model when non-empty.
	Model string

	// Messages is the full ordered message list, system prompt first.
	Messages []protocol.Message

	// Temperature is optional; nil omits the field from the wire request.
	Temperature *float64

	// ReasoningEffort requests upstream reasoning when non-empty
	// (the contract accepts "high").
	ReasoningEffort string
}

// Client issues requests against a chat-completion endpoint. Safe for
// concurrent use.
type Client struct {
	baseURL      string
	model        string
	completeHTTP *http.Client
	streamHTTP   *http.Client
	backoff      func(attempt int) time.Duration
}

// Option configures a Client after config-driven initialization.
type Option func(*Client)

// WithHTTPClients overrides the blocking and streaming HTTP clients.
func WithHTTPClients(complete, stream *http.Client) Option {
	return func(c *Client) {
		c.completeHTTP = complete
		c.streamHTTP = stream
	}
}

// WithBackoff overrides the establishment backoff schedule.
func WithBackoff(backoff func(attempt int) time.Duration) Option {
	return func(c *Client) {
		c.backoff = backoff
	}
}

// NewClient creates a Client from configuration. The blocking call uses a
// short timeout; the streaming call a much longer one, since it spans the
// whole generation.
func NewClient(cfg *Config, opts ...Option) *Client {
	client := &Client{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		completeHTTP: &http.Client{
			Timeout: time.Duration(cfg.CompleteTimeoutSeconds) * time.Second,
		},
		streamHTTP: &http.Client{
			Timeout: time.Duration(cfg.StreamTimeoutSeconds) * time.Second,
		},
		backoff: Backoff,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// wire shapes for the fixed chat-completion contract.
type wireRequest struct {
	Model       string             `json:"model"`
	Messages    []protocol.Message `json:"messages"`
	Stream      bool               `json:"stream,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	Reasoning   *wireReasoning     `json:"reasoning,omitempty"`
}

type wireReasoning struct {
	Effort string `json:"effort"`
}

type wireResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends a single blocking request and returns the reply text.
// Non-success statuses surface as *StatusError with the upstream's status
// and body; a parseable but contentless response surfaces as ErrNoReply.
// Nothing is retried at this layer — that is the caller's choice.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.post(ctx, c.completeHTTP, req, false)
	if err != nil {
		return "", fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading upstream response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Status: resp.StatusCode, Body: string(body)}
	}

	var parsed wireResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parsing upstream response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", ErrNoReply
	}
	return parsed.Choices[0].Message.Content, nil
}

// Stream issues a streaming request and returns the chunk sequence.
// Transport failures during establishment are retried up to 3 attempts
// with exponential backoff; on exhaustion the returned stream yields one
// human-readable diagnostic chunk and ends. A non-success status is not a
// transport failure and is not retried: its body is surfaced as the
// diagnostic. Failures after the stream has begun emitting are handled
// inside the stream and never retried.
func (c *Client) Stream(ctx context.Context, req Request) *ChunkStream {
	var lastErr error

	for attempt := 0; attempt < streamAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.backoff(attempt)); err != nil {
				lastErr = err
				break
			}
		}

		resp, err := c.post(ctx, c.streamHTTP, req, true)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return failedStream("[ERROR] " + string(body))
		}

		return bodyStream(resp.Body)
	}

	return failedStream(transportDiagnostic(lastErr))
}

func (c *Client) post(ctx context.Context, httpClient *http.Client, req Request, stream bool) (*http.Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	wire := wireRequest{
		Model:       model,
		Messages:    req.Messages,
		Stream:      stream,
		Temperature: req.Temperature,
	}
	if req.ReasoningEffort != "" {
		wire.Reasoning = &wireReasoning{Effort: req.ReasoningEffort}
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	return httpClient.Do(httpReq)
}

// transportDiagnostic renders an establishment failure as a human-readable
// chunk, distinguishing name-resolution failures from generic network
// failures.
func transportDiagnostic(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Sprintf("[ERROR] cannot resolve upstream host %q: check the configured base URL and network", dnsErr.Name)
	}
	return fmt.Sprintf("[ERROR] network failure reaching upstream: %v", err)
}

// sleep waits for the given duration or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
