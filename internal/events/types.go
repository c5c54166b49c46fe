package events

import "time"

// Event enumerates topics published by the signal pipeline.
type Event string

const (
	EventSignalReceived  Event = "signal.received"
	EventPositionChanged Event = "position.changed"
	EventSignalNoop      Event = "signal.noop"
	EventSignalFailed    Event = "signal.failed"
)

// SignalEvent is the payload of every topic.
type SignalEvent struct {
	Type      Event     `json:"type"`
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Signal    string    `json:"signal"`
	Previous  string    `json:"previous,omitempty"`
	Current   string    `json:"current,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
