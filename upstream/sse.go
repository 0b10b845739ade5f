package upstream

import (
	"bufio"
	"io"
	"strings"
)

// dataPrefix marks meaningful frames in the upstream's newline-delimited
// event stream. doneToken is the literal termination frame.
const (
	dataPrefix = "data: "
	doneToken  = "[DONE]"
)

// frameScanner reads data frames from a newline-delimited event stream.
// Only lines carrying the data prefix are surfaced; blank lines and
// comment lines (leading ":") are skipped. The chat-completion contract
// never splits one event across multiple data lines, so each data line
// is a complete frame.
type frameScanner struct {
	reader *bufio.Reader
	frame  string
	err    error
}

func newFrameScanner(reader io.Reader) *frameScanner {
	return &frameScanner{
		reader: bufio.NewReaderSize(reader, 64*1024),
	}
}

// Next advances to the next data frame. Returns false at end of stream or
// on a read error; Err distinguishes the two.
func (s *frameScanner) Next() bool {
	for {
		line, err := s.reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")

		if payload, ok := strings.CutPrefix(line, dataPrefix); ok {
			s.frame = strings.TrimSpace(payload)
			if err != nil && err != io.EOF {
				s.err = err
			}
			return true
		}

		if err != nil {
			if err != io.EOF {
				s.err = err
			}
			return false
		}
	}
}

// Frame returns the most recent data frame payload. Valid only after Next
// returned true.
func (s *frameScanner) Frame() string {
	return s.frame
}

// Err returns the read error that ended the stream, or nil on clean EOF.
func (s *frameScanner) Err() error {
	return s.err
}
