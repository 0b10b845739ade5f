package upstream

import (
	"strings"
	"testing"
)

func TestFrameScanner_DataFramesOnly(t *testing.T) {
	input := ": comment\n" +
		"event: message\n" +
		"data: {\"a\":1}\n" +
		"\n" +
		"data: [DONE]\n"

	scanner := newFrameScanner(strings.NewReader(input))

	var frames []string
	for scanner.Next() {
		frames = append(frames, scanner.Frame())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}

	want := []string{`{"a":1}`, "[DONE]"}
	if len(frames) != len(want) {
		t.Fatalf("got %d frames %v, want %d", len(frames), frames, len(want))
	}
	for i := range want {
		if frames[i] != want[i] {
			t.Errorf("frame[%d] = %q, want %q", i, frames[i], want[i])
		}
	}
}

func TestFrameScanner_CRLF(t *testing.T) {
	scanner := newFrameScanner(strings.NewReader("data: hello\r\n\r\n"))

	if !scanner.Next() {
		t.Fatal("Next() = false, want true")
	}
	if scanner.Frame() != "hello" {
		t.Errorf("Frame() = %q, want %q", scanner.Frame(), "hello")
	}
	if scanner.Next() {
		t.Error("Next() after last frame = true, want false")
	}
}

func TestFrameScanner_NoTrailingNewline(t *testing.T) {
	scanner := newFrameScanner(strings.NewReader("data: tail"))

	if !scanner.Next() {
		t.Fatal("Next() = false for final unterminated frame")
	}
	if scanner.Frame() != "tail" {
		t.Errorf("Frame() = %q, want %q", scanner.Frame(), "tail")
	}
	if err := scanner.Err(); err != nil {
		t.Errorf("Err() = %v, want nil on clean EOF", err)
	}
}

func TestFrameScanner_EmptyStream(t *testing.T) {
	scanner := newFrameScanner(strings.NewReader(""))

	if scanner.Next() {
		t.Error("Next() = true on empty stream")
	}
	if err := scanner.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}
