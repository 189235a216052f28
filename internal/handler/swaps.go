package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/slotswap/internal/model"
	"github.com/Shivanand-hulikatti/slotswap/internal/service"
	"github.com/go-chi/chi/v5"
)

// SwapHandler serves the marketplace and the swap negotiation.
type SwapHandler struct {
	swaps        *service.SwapService
	availability *service.AvailabilityIndex
	log          *slog.Logger
}

// NewSwapHandler constructs a SwapHandler.
func NewSwapHandler(swaps *service.SwapService, availability *service.AvailabilityIndex, log *slog.Logger) *SwapHandler {
	return &SwapHandler{swaps: swaps, availability: availability, log: log}
}

// SwappableSlots handles GET /api/swappable-slots
// Returns everyone else's open slots with their owners.
func (h *SwapHandler) SwappableSlots(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	slots, err := h.availability.ListSwappable(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if slots == nil {
		slots = []model.SwappableSlot{}
	}
	writeJSON(w, http.StatusOK, slots)
}

// ProposeSwap handles POST /api/swap-request
func (h *SwapHandler) ProposeSwap(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req model.ProposeSwapRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	swap, err := h.swaps.Propose(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, swap)
}

// RespondSwap handles POST /api/swap-response/{requestId}
// Body: {"accept": true|false}.
func (h *SwapHandler) RespondSwap(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req model.RespondSwapRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	swap, err := h.swaps.Respond(r.Context(), chi.URLParam(r, "requestId"), userID, req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, swap)
}

// Incoming handles GET /api/swap-requests/incoming
func (h *SwapHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.swaps.ListIncoming)
}

// Outgoing handles GET /api/swap-requests/outgoing
func (h *SwapHandler) Outgoing(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.swaps.ListOutgoing)
}

func (h *SwapHandler) list(w http.ResponseWriter, r *http.Request,
	fetch func(ctx context.Context, userID string) ([]model.SwapView, error)) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	views, err := fetch(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if views == nil {
		views = []model.SwapView{}
	}
	writeJSON(w, http.StatusOK, views)
}
