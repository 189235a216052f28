package model

import "time"

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title     string    `json:"title" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

// UpdateEventRequest is a partial update; nil fields are left untouched.
type UpdateEventRequest struct {
	Title     *string      `json:"title,omitempty"`
	StartTime *time.Time   `json:"start_time,omitempty"`
	EndTime   *time.Time   `json:"end_time,omitempty"`
	Status    *EventStatus `json:"status,omitempty" validate:"omitempty,oneof=BUSY SWAPPABLE"`
}

// ProposeSwapRequest offers one of the caller's slots for someone else's.
type ProposeSwapRequest struct {
	OfferedSlotID   string `json:"offered_slot_id" validate:"required"`
	RequestedSlotID string `json:"requested_slot_id" validate:"required"`
}

// RespondSwapRequest resolves a pending swap. Accept is a pointer so that a
// missing value can be told apart from false.
type RespondSwapRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the payload for exchanging credentials for a token.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User  UserSummary `json:"user"`
	Token string      `json:"token"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is a plain confirmation body.
type MessageResponse struct {
	Message string `json:"message"`
}
