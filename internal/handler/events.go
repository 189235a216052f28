package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/slotswap/internal/calendar"
	"github.com/Shivanand-hulikatti/slotswap/internal/model"
	"github.com/Shivanand-hulikatti/slotswap/internal/service"
	"github.com/go-chi/chi/v5"
)

// EventHandler serves the caller's own calendar.
type EventHandler struct {
	svc   *service.EventService
	clock service.Clock
	log   *slog.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, clock service.Clock, log *slog.Logger) *EventHandler {
	return &EventHandler{svc: svc, clock: clock, log: log}
}

// CreateEvent handles POST /api/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.Create(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// MyEvents handles GET /api/events/my-events
// Returns the caller's events ordered by start time.
func (h *EventHandler) MyEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	events, err := h.svc.ListByOwner(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// MyEventsICS handles GET /api/events/my-events.ics
// A caller with no events gets 204 No Content.
func (h *EventHandler) MyEventsICS(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	events, err := h.svc.ListByOwner(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	var buf bytes.Buffer
	if err := calendar.Encode(&buf, events, h.clock.Now()); err != nil {
		if errors.Is(err, calendar.ErrEmpty) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.log.Error("failed to encode calendar", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="my-events.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// GetEvent handles GET /api/events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	event, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent handles PUT /api/events/{id}
// Applies a partial update: absent fields keep their current value.
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req model.UpdateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), userID, req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /api/events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Event deleted successfully"})
}
