package model

import (
	"encoding/json"
	"time"
)

// NotificationKind names a signal pushed to a counter-party.
type NotificationKind string

const (
	NotifySwapRequested NotificationKind = "swap_requested"
	NotifySwapResolved  NotificationKind = "swap_resolved"
)

// SwapRequestedPayload tells a receiver that someone wants one of their slots.
type SwapRequestedPayload struct {
	RequestID      string `json:"request_id"`
	OfferedTitle   string `json:"offered_title"`
	RequestedTitle string `json:"requested_title"`
}

// SwapResolvedPayload tells a requester how their proposal ended.
type SwapResolvedPayload struct {
	RequestID         string `json:"request_id"`
	Accepted          bool   `json:"accepted"`
	CounterpartyTitle string `json:"counterparty_title"`
	Message           string `json:"message"`
}

// Envelope is the wire form of a notification.
type Envelope struct {
	Recipient string           `json:"recipient"`
	Type      NotificationKind `json:"type"`
	Data      json.RawMessage  `json:"data"`
	SentAt    time.Time        `json:"sent_at"`
}
