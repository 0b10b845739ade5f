package upstream_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chatrelay/relay/core/protocol"
	"github.com/chatrelay/relay/upstream"
)

func newTestClient(baseURL string) *upstream.Client {
	cfg := upstream.DefaultConfig()
	cfg.Merge(&upstream.Config{BaseURL: baseURL})
	return upstream.NewClient(&cfg,
		upstream.WithBackoff(func(int) time.Duration { return time.Millisecond }),
	)
}

func userRequest(content string) upstream.Request {
	return upstream.Request{
		APIKey:   "test-key",
		Messages: []protocol.Message{protocol.NewMessage(protocol.RoleUser, content)},
	}
}

func drain(t *testing.T, stream *upstream.ChunkStream) []upstream.Chunk {
	t.Helper()
	defer stream.Close()

	var chunks []upstream.Chunk
	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			return chunks
		}
		chunks = append(chunks, chunk)
	}
}

func TestComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"hello back"}}]}`)
	}))
	defer server.Close()

	reply, err := newTestClient(server.URL).Complete(context.Background(), userRequest("hello"))
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if reply != "hello back" {
		t.Errorf("reply = %q, want %q", reply, "hello back")
	}
}

func TestComplete_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), userRequest("hello"))

	var statusErr *upstream.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if statusErr.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want 429", statusErr.Status)
	}
	if !strings.Contains(statusErr.Body, "rate limited") {
		t.Errorf("Body = %q, want upstream body", statusErr.Body)
	}
}

func TestComplete_NoReply(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty choices", `{"choices":[]}`},
		{"empty content", `{"choices":[{"message":{"content":""}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Complete(context.Background(), userRequest("hello"))
			if !errors.Is(err, upstream.ErrNoReply) {
				t.Errorf("error = %v, want ErrNoReply", err)
			}
		})
	}
}

func TestComplete_TransportErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	server.Close() // refuse all connections

	_, err := newTestClient(server.URL).Complete(context.Background(), userRequest("hello"))
	if err == nil {
		t.Fatal("Complete() expected transport error")
	}
	if calls.Load() != 0 {
		t.Errorf("server saw %d calls after close", calls.Load())
	}
}

func TestStream_DeltaChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		frames := []string{
			`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
			`data: {"choices":[{"delta":{"content":"lo"}}]}`,
			`data: {"choices":[{"delta":{}}]}`,
			`data: [DONE]`,
		}
		for _, frame := range frames {
			fmt.Fprintf(w, "%s\n\n", frame)
		}
	}))
	defer server.Close()

	stream := newTestClient(server.URL).Stream(context.Background(), userRequest("hi"))
	chunks := drain(t, stream)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks %v, want 2", len(chunks), chunks)
	}
	if chunks[0].Text != "Hel" || chunks[1].Text != "lo" {
		t.Errorf("chunks = %q, %q", chunks[0].Text, chunks[1].Text)
	}
	if stream.Text() != "Hello" {
		t.Errorf("Text() = %q, want %q", stream.Text(), "Hello")
	}
	if stream.Failed() {
		t.Error("Failed() = true for clean stream")
	}
}

func TestStream_MalformedFrameForwardedNotAccumulated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: not json at all\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer server.Close()

	stream := newTestClient(server.URL).Stream(context.Background(), userRequest("hi"))
	chunks := drain(t, stream)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Text != "not json at all" || chunks[0].Content {
		t.Errorf("malformed frame chunk = %+v, want verbatim non-content", chunks[0])
	}
	if stream.Text() != "ok" {
		t.Errorf("Text() = %q, want %q (malformed frame must not accumulate)", stream.Text(), "ok")
	}
}

func TestStream_RetryExhaustion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // every establishment attempt fails at transport level

	stream := newTestClient(server.URL).Stream(context.Background(), userRequest("hi"))
	chunks := drain(t, stream)

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want exactly one diagnostic", len(chunks))
	}
	if !strings.HasPrefix(chunks[0].Text, "[ERROR]") {
		t.Errorf("diagnostic = %q, want [ERROR] prefix", chunks[0].Text)
	}
	if chunks[0].Content {
		t.Error("diagnostic chunk marked as content")
	}
	if stream.Text() != "" {
		t.Errorf("Text() = %q, want empty", stream.Text())
	}
	if !stream.Failed() {
		t.Error("Failed() = false after retry exhaustion")
	}
}

func TestStream_EstablishmentRetriesThreeTimes(t *testing.T) {
	var attempts atomic.Int32
	// The handler hijacks and drops the connection so establishment
	// fails at the transport level without an HTTP status.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Fatal(err)
		}
		conn.Close()
	}))
	defer server.Close()

	stream := newTestClient(server.URL).Stream(context.Background(), userRequest("hi"))
	chunks := drain(t, stream)

	if got := attempts.Load(); got != 3 {
		t.Errorf("establishment attempts = %d, want 3", got)
	}
	if len(chunks) != 1 {
		t.Errorf("got %d chunks, want 1 diagnostic", len(chunks))
	}
}

func TestStream_NonSuccessStatusNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "model offline", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	stream := newTestClient(server.URL).Stream(context.Background(), userRequest("hi"))
	chunks := drain(t, stream)

	if attempts.Load() != 1 {
		t.Errorf("attempts = %d, want 1 (status errors are not retried)", attempts.Load())
	}
	if len(chunks) != 1 || !strings.Contains(chunks[0].Text, "model offline") {
		t.Errorf("chunks = %v, want single diagnostic carrying upstream body", chunks)
	}
	if !stream.Failed() {
		t.Error("Failed() = false after status failure")
	}
}

func TestStream_InterruptionYieldsDiagnosticAndKeepsPartial(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
		w.(http.Flusher).Flush()
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Fatal(err)
		}
		conn.Close() // drop mid-stream, after the first chunk
	}))
	defer server.Close()

	stream := newTestClient(server.URL).Stream(context.Background(), userRequest("hi"))
	chunks := drain(t, stream)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks %v, want content + diagnostic", len(chunks), chunks)
	}
	if chunks[0].Text != "partial" || !chunks[0].Content {
		t.Errorf("first chunk = %+v", chunks[0])
	}
	if !strings.HasPrefix(chunks[1].Text, "[ERROR]") {
		t.Errorf("second chunk = %q, want diagnostic", chunks[1].Text)
	}
	if stream.Text() != "partial" {
		t.Errorf("Text() = %q, want accumulated partial content", stream.Text())
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 600 * time.Millisecond},
		{2, 1200 * time.Millisecond},
		{3, 2400 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := upstream.Backoff(tt.attempt); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
