// Package model defines the core domain types for the slot swap system.
package model

import "time"

// EventStatus governs whether an event can take part in a swap.
type EventStatus string

const (
	StatusBusy        EventStatus = "BUSY"
	StatusSwappable   EventStatus = "SWAPPABLE"
	StatusSwapPending EventStatus = "SWAP_PENDING"
)

// SwapStatus is the negotiation state of a SwapRequest.
type SwapStatus string

const (
	SwapPending  SwapStatus = "PENDING"
	SwapAccepted SwapStatus = "ACCEPTED"
	SwapRejected SwapStatus = "REJECTED"
)

// Terminal reports whether the request can no longer change.
func (s SwapStatus) Terminal() bool {
	return s == SwapAccepted || s == SwapRejected
}

// Event is a calendar slot owned by exactly one user.
type Event struct {
	ID        string      `json:"id"`
	OwnerID   string      `json:"owner_id"`
	Title     string      `json:"title"`
	StartTime time.Time   `json:"start_time"`
	EndTime   time.Time   `json:"end_time"`
	Status    EventStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Overlaps reports whether the half-open intervals [StartTime, EndTime)
// and [start, end) intersect.
func (e *Event) Overlaps(start, end time.Time) bool {
	return e.StartTime.Before(end) && e.EndTime.After(start)
}

// SwapRequest is a proposal to exchange the owners of two events.
type SwapRequest struct {
	ID              string     `json:"id"`
	RequesterID     string     `json:"requester_id"`
	ReceiverID      string     `json:"receiver_id"`
	OfferedSlotID   string     `json:"offered_slot_id"`
	RequestedSlotID string     `json:"requested_slot_id"`
	Status          SwapStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// User is an account able to own events.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserSummary is the public view of a user attached to listings.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Summary strips everything but the public fields.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// SwappableSlot is an open event together with its owner.
type SwappableSlot struct {
	Event
	Owner UserSummary `json:"owner"`
}

// SwapView is a pending request with snapshots of everything it references.
type SwapView struct {
	SwapRequest
	Requester     UserSummary `json:"requester"`
	Receiver      UserSummary `json:"receiver"`
	OfferedSlot   Event       `json:"offered_slot"`
	RequestedSlot Event       `json:"requested_slot"`
}
