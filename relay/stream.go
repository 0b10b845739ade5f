package relay

import (
	"context"
	"io"
	"strings"

	"github.com/chatrelay/relay/observability"
	"github.com/chatrelay/relay/upstream"
)

// Stream is one streaming exchange in flight. The session id is available
// before the first chunk so transports can surface it in headers. The turn
// commits exactly once, when the underlying stream is exhausted; callers
// that stop reading early must still Drain so the partial reply is
// recorded.
type Stream struct {
	// SessionID identifies the conversation, resolved before streaming began.
	SessionID string

	relay     *Relay
	call      *call
	inner     *upstream.ChunkStream
	committed bool
}

// ChatStream handles one streaming exchange. It resolves and assembles
// exactly like Chat, then returns the live chunk sequence instead of a
// final reply. A clear with no message yields a stream whose only chunk is
// the clear acknowledgement.
func (r *Relay) ChatStream(ctx context.Context, req Request) (*Stream, error) {
	c, err := r.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	stream := &Stream{SessionID: c.sessionID, relay: r, call: c}
	if c.clearedOnly {
		stream.committed = true // nothing to record
		stream.inner = upstream.AckStream(ClearAck)
		return stream, nil
	}

	r.emit(ctx, EventUpstreamCall, observability.LevelDebug, map[string]any{
		"session_id": c.sessionID,
		"messages":   len(c.upstream.Messages),
		"streaming":  true,
	})

	// The upstream call runs on a context detached from the caller: a
	// client disconnect must not abort the generation mid-way, or Drain
	// would commit a partial reply. The streaming client's own timeout
	// still bounds the call.
	stream.inner = r.client.Stream(context.WithoutCancel(ctx), c.upstream)
	return stream, nil
}

// Next returns the next chunk, or io.EOF when the stream ends. The end of
// the stream triggers the turn commit.
func (s *Stream) Next(ctx context.Context) (upstream.Chunk, error) {
	chunk, err := s.inner.Next()
	if err == io.EOF {
		s.finish(ctx)
	}
	return chunk, err
}

// Drain consumes any remaining chunks, discarding them. Transports call it
// when the client disconnects mid-stream so the generation completes and
// the partial turn is still committed.
func (s *Stream) Drain(ctx context.Context) {
	for {
		if _, err := s.Next(ctx); err != nil {
			return
		}
	}
}

// Close releases the underlying stream without draining it.
func (s *Stream) Close() error {
	return s.inner.Close()
}

// finish commits the accumulated reply. An empty accumulation commits
// nothing: a failed or silent generation never pollutes history. Content
// received before a mid-stream failure does commit.
func (s *Stream) finish(ctx context.Context) {
	if s.committed {
		return
	}
	s.committed = true

	reply := strings.TrimSpace(s.inner.Text())

	s.relay.emit(ctx, EventStreamEnd, observability.LevelInfo, map[string]any{
		"session_id":   s.SessionID,
		"reply_length": len(reply),
		"failed":       s.inner.Failed(),
	})

	if reply == "" {
		return
	}
	s.relay.commitTurn(ctx, s.call, reply)
}
