package models

import "encoding/json"

// EventType enumerates the payload kinds carried over the realtime channel.
type EventType string

const (
	EventMessage       EventType = "message"
	EventTyping        EventType = "typing"
	EventStopTyping    EventType = "stopTyping"
	EventMessageUpdate EventType = "messageUpdate"
	EventMessageStatus EventType = "messageStatus"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventMessage, EventTyping, EventStopTyping, EventMessageUpdate, EventMessageStatus:
		return true
	}
	return false
}

// ChannelEvent is the wire envelope exchanged on the realtime channel.
// Data is opaque to the transport; consumers decode it per event type.
type ChannelEvent struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}
