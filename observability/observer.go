// Package observability provides event-based observability for the relay
// subsystems. Components emit structured events through an Observer rather
// than logging directly, so transports and tests can capture the same
// signal the production logger sees.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// Level represents event severity. Values map onto slog levels for emission.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

// SlogLevel maps this level to the corresponding slog.Level.
func (l Level) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// String returns the severity name for the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARN"
	default:
		return "ERROR"
	}
}

// EventType identifies the kind of event. Each subsystem defines its own
// constants using this type (e.g. "relay.request.start", "session.snapshot.error").
type EventType string

// Event is an observability event emitted by a relay subsystem.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// Observer receives events from subsystems for logging or test capture.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}
