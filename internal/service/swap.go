package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/Shivanand-hulikatti/slotswap/internal/model"
	"github.com/Shivanand-hulikatti/slotswap/internal/repository"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// SwapService drives the swap negotiation:
//
//	PENDING ──accept──▶ ACCEPTED  (owners exchanged, both events BUSY)
//	   └─────reject──▶ REJECTED  (both events back to SWAPPABLE)
//
// Both terminal states are final. Every transition reads the request and its
// events inside the transaction that writes them, so a racing propose or
// respond sees the committed result and fails with a conflict.
type SwapService struct {
	store    repository.Store
	notifier Notifier
	clock    Clock
	log      *slog.Logger
}

// NewSwapService constructs a SwapService with its dependencies.
func NewSwapService(store repository.Store, notifier Notifier, clock Clock, log *slog.Logger) *SwapService {
	return &SwapService{store: store, notifier: notifier, clock: clock, log: log}
}

// lockEvents loads and locks the given events in ascending id order, which
// keeps lock acquisition deadlock free across concurrent swaps.
func lockEvents(ctx context.Context, tx repository.Tx, ids ...string) (map[string]*model.Event, error) {
	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	locked := make(map[string]*model.Event, len(ordered))
	for _, id := range ordered {
		e, err := tx.EventForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = e
	}
	return locked, nil
}

// Propose offers the caller's offered slot in exchange for requested slot.
// The request is created and both events move to SWAP_PENDING in one
// transaction; the receiver is notified after it commits.
func (s *SwapService) Propose(ctx context.Context, actor string, req model.ProposeSwapRequest) (*model.SwapRequest, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.OfferedSlotID == req.RequestedSlotID {
		return nil, fmt.Errorf("%w: cannot swap a slot with itself", model.ErrValidation)
	}
	now := s.clock.Now()

	var (
		swap      *model.SwapRequest
		offered   *model.Event
		requested *model.Event
	)
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		events, err := lockEvents(ctx, tx, req.OfferedSlotID, req.RequestedSlotID)
		if err != nil {
			return err
		}
		offered, requested = events[req.OfferedSlotID], events[req.RequestedSlotID]

		if offered.OwnerID != actor {
			return fmt.Errorf("%w: you do not own this slot", model.ErrAuthorization)
		}
		if requested.OwnerID == actor {
			return fmt.Errorf("%w: cannot swap with your own slot", model.ErrValidation)
		}
		if offered.Status != model.StatusSwappable {
			return fmt.Errorf("%w: your slot is not swappable", model.ErrConflict)
		}
		if requested.Status != model.StatusSwappable {
			return fmt.Errorf("%w: their slot is not swappable", model.ErrConflict)
		}

		swap = &model.SwapRequest{
			ID:              uuid.New().String(),
			RequesterID:     actor,
			ReceiverID:      requested.OwnerID,
			OfferedSlotID:   offered.ID,
			RequestedSlotID: requested.ID,
			Status:          model.SwapPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.InsertSwap(ctx, swap); err != nil {
			return err
		}
		for _, e := range []*model.Event{offered, requested} {
			e.Status = model.StatusSwapPending
			e.UpdatedAt = now
			if err := tx.UpdateEvent(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("swap proposed",
		"request_id", swap.ID,
		"requester_id", swap.RequesterID,
		"receiver_id", swap.ReceiverID)
	s.notify(ctx, swap.ReceiverID, model.NotifySwapRequested, model.SwapRequestedPayload{
		RequestID:      swap.ID,
		OfferedTitle:   offered.Title,
		RequestedTitle: requested.Title,
	})
	return swap, nil
}

// Respond accepts or rejects a pending request on behalf of its receiver.
// Accepting exchanges the owners of the two events and marks both BUSY;
// rejecting releases both back to SWAPPABLE. The requester is notified after
// the transaction commits.
func (s *SwapService) Respond(ctx context.Context, requestID, actor string, req model.RespondSwapRequest) (*model.SwapRequest, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	accept := *req.Accept
	now := s.clock.Now()

	var (
		swap      *model.SwapRequest
		requested *model.Event
	)
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		swap, err = tx.SwapForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if swap.Status.Terminal() {
			return fmt.Errorf("%w: swap request already %s", model.ErrConflict, strings.ToLower(string(swap.Status)))
		}
		if swap.ReceiverID != actor {
			return fmt.Errorf("%w: not authorized to respond to this request", model.ErrAuthorization)
		}

		events, err := lockEvents(ctx, tx, swap.OfferedSlotID, swap.RequestedSlotID)
		if err != nil {
			return err
		}
		offered := events[swap.OfferedSlotID]
		requested = events[swap.RequestedSlotID]

		if accept {
			swap.Status = model.SwapAccepted
			offered.OwnerID, requested.OwnerID = requested.OwnerID, offered.OwnerID
			offered.Status = model.StatusBusy
			requested.Status = model.StatusBusy
		} else {
			swap.Status = model.SwapRejected
			offered.Status = model.StatusSwappable
			requested.Status = model.StatusSwappable
		}
		swap.UpdatedAt = now
		offered.UpdatedAt = now
		requested.UpdatedAt = now

		if err := tx.UpdateSwap(ctx, swap); err != nil {
			return err
		}
		if err := tx.UpdateEvent(ctx, offered); err != nil {
			return err
		}
		return tx.UpdateEvent(ctx, requested)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("swap resolved", "request_id", swap.ID, "status", swap.Status)
	message := "Your swap request was rejected."
	if accept {
		message = "Your swap request has been accepted!"
	}
	s.notify(ctx, swap.RequesterID, model.NotifySwapResolved, model.SwapResolvedPayload{
		RequestID:         swap.ID,
		Accepted:          accept,
		CounterpartyTitle: requested.Title,
		Message:           message,
	})
	return swap, nil
}

// ListIncoming returns pending requests waiting on userID, newest first.
func (s *SwapService) ListIncoming(ctx context.Context, userID string) ([]model.SwapView, error) {
	return s.listPending(ctx, repository.SwapFilter{ReceiverID: userID})
}

// ListOutgoing returns pending requests made by userID, newest first.
func (s *SwapService) ListOutgoing(ctx context.Context, userID string) ([]model.SwapView, error) {
	return s.listPending(ctx, repository.SwapFilter{RequesterID: userID})
}

func (s *SwapService) listPending(ctx context.Context, f repository.SwapFilter) ([]model.SwapView, error) {
	var views []model.SwapView
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		swaps, err := tx.PendingSwaps(ctx, f)
		if err != nil {
			return err
		}
		if len(swaps) == 0 {
			return nil
		}

		slotIDs := lo.FlatMap(swaps, func(sr model.SwapRequest, _ int) []string {
			return []string{sr.OfferedSlotID, sr.RequestedSlotID}
		})
		events, err := tx.EventsByIDs(ctx, lo.Uniq(slotIDs))
		if err != nil {
			return err
		}
		byID := lo.KeyBy(events, func(e model.Event) string { return e.ID })

		userIDs := lo.FlatMap(swaps, func(sr model.SwapRequest, _ int) []string {
			return []string{sr.RequesterID, sr.ReceiverID}
		})
		users, err := usersByID(ctx, tx, userIDs)
		if err != nil {
			return err
		}

		views = lo.Map(swaps, func(sr model.SwapRequest, _ int) model.SwapView {
			return model.SwapView{
				SwapRequest:   sr,
				Requester:     users.summary(sr.RequesterID),
				Receiver:      users.summary(sr.ReceiverID),
				OfferedSlot:   snapshot(byID, sr.OfferedSlotID),
				RequestedSlot: snapshot(byID, sr.RequestedSlotID),
			}
		})
		return nil
	})
	return views, err
}

func snapshot(byID map[string]model.Event, id string) model.Event {
	if e, ok := byID[id]; ok {
		return e
	}
	return model.Event{ID: id}
}

func (s *SwapService) notify(ctx context.Context, userID string, kind model.NotificationKind, payload any) {
	if err := s.notifier.Notify(ctx, userID, kind, payload); err != nil {
		s.log.Warn("notification not delivered",
			"user_id", userID,
			"kind", kind,
			"error", err)
	}
}
