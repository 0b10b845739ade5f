package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/chatrelay/relay/observability"
	"github.com/chatrelay/relay/relay"
	"github.com/chatrelay/relay/upstream"
)

// chatRequest is the JSON body for POST /chat and POST /chat/stream.
type chatRequest struct {
	Message      string   `json:"message"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	SessionID    string   `json:"session_id,omitempty"`
	Clear        bool     `json:"clear,omitempty"`
	APIKey       string   `json:"api_key,omitempty"`
	Model        string   `json:"model,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	ShowThinking bool     `json:"show_thinking,omitempty"`
}

func (req *chatRequest) toRelay() relay.Request {
	return relay.Request{
		Message:      req.Message,
		SystemPrompt: req.SystemPrompt,
		SessionID:    req.SessionID,
		Clear:        req.Clear,
		APIKey:       req.APIKey,
		Model:        req.Model,
		Temperature:  req.Temperature,
		ShowThinking: req.ShowThinking,
	}
}

// chatResponse is the JSON body for POST /chat.
type chatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.relay.Chat(r.Context(), req.toRelay())
	if err != nil {
		s.writeChatError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Reply: resp.Reply, SessionID: resp.SessionID})
}

// handleChatStream streams the reply as chunked plain text, one flush per
// chunk, with the session id in the x-session-id header. If the client
// goes away mid-stream the remaining chunks are drained so the turn is
// still committed.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	stream, err := s.relay.ChatStream(ctx, req.toRelay())
	if err != nil {
		s.writeChatError(w, r, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Session-Id", stream.SessionID)
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for {
		chunk, err := stream.Next(ctx)
		if err == io.EOF {
			return
		}
		if _, werr := io.WriteString(w, chunk.Text); werr != nil {
			s.observe(ctx, relay.EventError, observability.LevelDebug, map[string]any{
				"session_id": stream.SessionID,
				"error":      "client disconnected mid-stream",
			})
			stream.Drain(ctx)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// writeChatError maps relay and upstream errors onto HTTP statuses:
// client-input problems are 400, upstream statuses pass through, and
// everything else at the upstream boundary is a 502.
func (s *Server) writeChatError(w http.ResponseWriter, r *http.Request, err error) {
	s.observe(r.Context(), relay.EventError, observability.LevelWarning, map[string]any{
		"path":  r.URL.Path,
		"error": err.Error(),
	})

	switch {
	case errors.Is(err, relay.ErrMissingCredential), errors.Is(err, relay.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, upstream.ErrNoReply):
		writeError(w, http.StatusBadGateway, "no reply from model")
	default:
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) {
			writeError(w, statusErr.Status, statusErr.Body)
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"error": detail})
}
