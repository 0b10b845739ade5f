package relay

import "github.com/chatrelay/relay/observability"

// Relay event types emitted during request handling.
const (
	EventRequestStart   observability.EventType = "relay.request.start"
	EventSessionCleared observability.EventType = "relay.session.clear"
	EventUpstreamCall   observability.EventType = "relay.upstream.call"
	EventTurnCommitted  observability.EventType = "relay.turn.commit"
	EventReply          observability.EventType = "relay.reply"
	EventStreamEnd      observability.EventType = "relay.stream.end"
	EventError          observability.EventType = "relay.error"
)
