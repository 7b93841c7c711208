package models

import "time"

// Origin identifies who authored a message.
type Origin string

const (
	OriginUser   Origin = "user"
	OriginSystem Origin = "system"
)

// Valid reports whether o is a known origin.
func (o Origin) Valid() bool {
	return o == OriginUser || o == OriginSystem
}

// DeliveryState tracks how far a message has travelled toward the reader.
// It is stored for every message but only rendered for user-authored ones.
type DeliveryState string

const (
	DeliverySent      DeliveryState = "sent"
	DeliveryDelivered DeliveryState = "delivered"
	DeliveryRead      DeliveryState = "read"
)

// Valid reports whether s is a known delivery state.
func (s DeliveryState) Valid() bool {
	return s == DeliverySent || s == DeliveryDelivered || s == DeliveryRead
}

// Message is a single unit of conversation content. IDs are assigned by the
// store, strictly increasing in creation order, and never reused.
type Message struct {
	ID            int64         `json:"id"`
	Content       string        `json:"content"`
	Origin        Origin        `json:"origin"`
	Timestamp     time.Time     `json:"timestamp"`
	Edited        bool          `json:"edited"`
	EditedAt      *time.Time    `json:"editedAt"`
	DeliveryState DeliveryState `json:"deliveryState"`
}

// Draft is the caller-supplied part of a message; the store fills in
// identity, timestamp and edit state.
type Draft struct {
	Content       string        `json:"content"`
	Origin        Origin        `json:"origin"`
	DeliveryState DeliveryState `json:"deliveryState,omitempty"`
}
