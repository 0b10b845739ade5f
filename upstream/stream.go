package upstream

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"
)

// streamState tracks a ChunkStream after establishment:
// Streaming → Done | Failed. The Connecting phase (establishment with
// retry/backoff) lives in Client.Stream, before a ChunkStream exists.
type streamState int

const (
	stateStreaming streamState = iota
	stateDone
	stateFailed
)

// errStreamFailed is returned by iteration functions to mark a sequence
// that ended in failure rather than normal completion.
var errStreamFailed = errors.New("stream failed")

const (
	// streamAttempts is the total number of stream establishment attempts
	// before the failure is surfaced as a diagnostic chunk.
	streamAttempts = 3

	// backoffBase is the delay before the second establishment attempt;
	// it doubles for each further attempt.
	backoffBase = 600 * time.Millisecond
)

// Backoff returns the wait before establishment retry n (the first retry
// is attempt 1). Pure function of the attempt number: 600ms, 1200ms, ...
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return backoffBase << (attempt - 1)
}

// Chunk is one fragment of a streaming reply. Content chunks carry parsed
// delta text and are accumulated into the final reply; non-content chunks
// (malformed frames forwarded verbatim, terminal diagnostics) are
// delivered to the caller but never enter the accumulated reply.
type Chunk struct {
	Text    string
	Content bool
}

// ChunkStream is a finite, non-restartable sequence of reply chunks.
// Iterate with Next until io.EOF, then read the accumulated reply with
// Text. Not safe for concurrent use.
type ChunkStream struct {
	next   func() (Chunk, error)
	closer io.Closer
	text   strings.Builder
	state  streamState
}

// NewChunkStream builds a ChunkStream from an iteration function and an
// optional closer for the underlying resource. The next function returns
// (chunk, nil) per chunk, (zero, io.EOF) at normal end of stream, and
// (zero, errStreamFailed) after a terminal diagnostic chunk.
func NewChunkStream(next func() (Chunk, error), closer io.Closer) *ChunkStream {
	return &ChunkStream{next: next, closer: closer, state: stateStreaming}
}

// Next returns the next chunk. Returns io.EOF when the sequence ends;
// the sequence always ends this way — failures are represented as a
// final diagnostic chunk followed by io.EOF, never as an error.
func (s *ChunkStream) Next() (Chunk, error) {
	if s.state != stateStreaming {
		return Chunk{}, io.EOF
	}

	chunk, err := s.next()
	if err != nil {
		if errors.Is(err, errStreamFailed) {
			s.state = stateFailed
		} else {
			s.state = stateDone
		}
		return Chunk{}, io.EOF
	}

	if chunk.Content {
		s.text.WriteString(chunk.Text)
	}
	return chunk, nil
}

// Text returns the concatenation of all content chunks emitted so far.
// After Next has returned io.EOF this is the complete assistant reply;
// empty means the stream produced no usable content.
func (s *ChunkStream) Text() string {
	return s.text.String()
}

// Failed reports whether the sequence ended in failure. Meaningful only
// after Next has returned io.EOF.
func (s *ChunkStream) Failed() bool {
	return s.state == stateFailed
}

// Close releases the underlying response body. Safe to call at any point,
// including after io.EOF.
func (s *ChunkStream) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// AckStream yields a single content chunk and ends cleanly. Used for
// responses that are known in full before any upstream call.
func AckStream(text string) *ChunkStream {
	emitted := false
	return NewChunkStream(func() (Chunk, error) {
		if emitted {
			return Chunk{}, io.EOF
		}
		emitted = true
		return Chunk{Text: text, Content: true}, nil
	}, nil)
}

// failedStream yields exactly one diagnostic chunk and ends in the
// Failed state.
func failedStream(diagnostic string) *ChunkStream {
	emitted := false
	return NewChunkStream(func() (Chunk, error) {
		if emitted {
			return Chunk{}, errStreamFailed
		}
		emitted = true
		return Chunk{Text: diagnostic}, nil
	}, nil)
}

// bodyStream parses data frames from an established response body.
// Each frame's nested delta content field becomes a content chunk;
// malformed frames are forwarded verbatim as best-effort chunks rather
// than dropped. A read failure after streaming has begun is not retried —
// partial output may already be with the caller, so a clean retry is
// impossible. It surfaces as a final diagnostic chunk instead.
func bodyStream(body io.ReadCloser) *ChunkStream {
	scanner := newFrameScanner(body)
	interrupted := false

	return NewChunkStream(func() (Chunk, error) {
		if interrupted {
			return Chunk{}, errStreamFailed
		}

		for scanner.Next() {
			frame := scanner.Frame()
			if frame == doneToken {
				return Chunk{}, io.EOF
			}

			var delta streamDelta
			if err := json.Unmarshal([]byte(frame), &delta); err != nil {
				// Not JSON: forward the raw frame so nothing is lost.
				return Chunk{Text: frame}, nil
			}

			if text := delta.content(); text != "" {
				return Chunk{Text: text, Content: true}, nil
			}
		}

		if err := scanner.Err(); err != nil {
			interrupted = true
			return Chunk{Text: "[ERROR] stream interrupted: " + err.Error()}, nil
		}
		return Chunk{}, io.EOF
	}, body)
}

// streamDelta is the wire shape of one streaming data frame.
type streamDelta struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (d *streamDelta) content() string {
	if len(d.Choices) == 0 {
		return ""
	}
	return d.Choices[0].Delta.Content
}
