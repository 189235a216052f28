// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/slotswap/internal/model"
	"github.com/Shivanand-hulikatti/slotswap/internal/repository"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// DefaultPastGrace is how far in the past an event may start. It absorbs
// clock skew and submission latency.
const DefaultPastGrace = 60 * time.Second

// EventService owns events: creation, edits, deletion and the per-owner
// non-overlap rule.
type EventService struct {
	store     repository.Store
	clock     Clock
	log       *slog.Logger
	pastGrace time.Duration
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(store repository.Store, clock Clock, log *slog.Logger, pastGrace time.Duration) *EventService {
	return &EventService{store: store, clock: clock, log: log, pastGrace: pastGrace}
}

// checkSchedule enforces end > start and that start is not earlier than
// now minus the grace window. A start exactly at the window edge is accepted.
func (s *EventService) checkSchedule(start, end, now time.Time) error {
	if !end.After(start) {
		return fmt.Errorf("%w: end time must be after start time", model.ErrValidation)
	}
	if start.Before(now.Add(-s.pastGrace)) {
		return fmt.Errorf("%w: event cannot start in the past", model.ErrValidation)
	}
	return nil
}

// checkOverlap fails with a conflict when [start, end) intersects another
// event of the owner. excludeID skips the event being edited.
func checkOverlap(ctx context.Context, tx repository.Tx, ownerID, excludeID string, start, end time.Time) error {
	events, err := tx.EventsByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	clash, found := lo.Find(events, func(e model.Event) bool {
		return e.ID != excludeID && e.Overlaps(start, end)
	})
	if found {
		return fmt.Errorf("%w: event overlaps with %q in your calendar", model.ErrConflict, clash.Title)
	}
	return nil
}

// Create validates the request and stores a new BUSY event for ownerID.
func (s *EventService) Create(ctx context.Context, ownerID string, req model.CreateEventRequest) (*model.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", model.ErrValidation)
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := s.checkSchedule(req.StartTime, req.EndTime, now); err != nil {
		return nil, err
	}

	event := &model.Event{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     req.Title,
		StartTime: req.StartTime.UTC(),
		EndTime:   req.EndTime.UTC(),
		Status:    model.StatusBusy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if err := tx.LockOwner(ctx, ownerID); err != nil {
			return err
		}
		if err := checkOverlap(ctx, tx, ownerID, "", event.StartTime, event.EndTime); err != nil {
			return err
		}
		return tx.InsertEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event created", "event_id", event.ID, "owner_id", ownerID)
	return event, nil
}

// Get returns one of the caller's events.
func (s *EventService) Get(ctx context.Context, id, actor string) (*model.Event, error) {
	var event *model.Event
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		found, err := tx.EventsByIDs(ctx, []string{id})
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return fmt.Errorf("%w: event not found", model.ErrNotFound)
		}
		event = &found[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	if event.OwnerID != actor {
		return nil, fmt.Errorf("%w: not authorized to view this event", model.ErrAuthorization)
	}
	return event, nil
}

// Update applies a partial edit. Time changes re-run the past and overlap
// checks; the whole patch is applied or nothing is.
//
// SWAP_PENDING is controlled by the swap negotiation: it cannot be set here,
// and an event carrying it only accepts title edits.
func (s *EventService) Update(ctx context.Context, id, actor string, req model.UpdateEventRequest) (*model.Event, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", model.ErrValidation)
		}
		req.Title = &title
	}
	now := s.clock.Now()
	timesChanged := req.StartTime != nil || req.EndTime != nil

	var updated model.Event
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		current, err := tx.EventForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.OwnerID != actor {
			return fmt.Errorf("%w: not authorized to update this event", model.ErrAuthorization)
		}
		if current.Status == model.StatusSwapPending && (timesChanged || req.Status != nil) {
			return fmt.Errorf("%w: event has a pending swap request", model.ErrConflict)
		}

		updated = *current
		if req.Title != nil {
			updated.Title = *req.Title
		}
		if timesChanged {
			if req.StartTime != nil {
				updated.StartTime = req.StartTime.UTC()
			}
			if req.EndTime != nil {
				updated.EndTime = req.EndTime.UTC()
			}
			if err := s.checkSchedule(updated.StartTime, updated.EndTime, now); err != nil {
				return err
			}
			if err := tx.LockOwner(ctx, actor); err != nil {
				return err
			}
			if err := checkOverlap(ctx, tx, actor, id, updated.StartTime, updated.EndTime); err != nil {
				return err
			}
		}
		if req.Status != nil {
			updated.Status = *req.Status
		}
		updated.UpdatedAt = now
		return tx.UpdateEvent(ctx, &updated)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event updated", "event_id", id, "status", updated.Status)
	return &updated, nil
}

// Delete removes one of the caller's events. Events locked in a pending swap
// cannot be deleted until the request is resolved.
func (s *EventService) Delete(ctx context.Context, id, actor string) error {
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		current, err := tx.EventForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.OwnerID != actor {
			return fmt.Errorf("%w: not authorized to delete this event", model.ErrAuthorization)
		}
		if current.Status == model.StatusSwapPending {
			return fmt.Errorf("%w: event has a pending swap request", model.ErrConflict)
		}
		return tx.DeleteEvent(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info("event deleted", "event_id", id, "owner_id", actor)
	return nil
}

// ListByOwner returns the owner's events ordered by start time.
func (s *EventService) ListByOwner(ctx context.Context, ownerID string) ([]model.Event, error) {
	var events []model.Event
	err := s.store.WithinTx(ctx, func(tx repository.Tx) (err error) {
		events, err = tx.EventsByOwner(ctx, ownerID)
		return err
	})
	return events, err
}

// FindSwappable returns SWAPPABLE events of everyone but excludingOwner,
// ordered by start time, each with its owner attached.
func (s *EventService) FindSwappable(ctx context.Context, excludingOwner string) ([]model.SwappableSlot, error) {
	var slots []model.SwappableSlot
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		events, err := tx.SwappableEvents(ctx, excludingOwner)
		if err != nil {
			return err
		}
		owners, err := usersByID(ctx, tx, lo.Map(events, func(e model.Event, _ int) string { return e.OwnerID }))
		if err != nil {
			return err
		}
		slots = lo.Map(events, func(e model.Event, _ int) model.SwappableSlot {
			return model.SwappableSlot{Event: e, Owner: owners.summary(e.OwnerID)}
		})
		return nil
	})
	return slots, err
}

type userIndex map[string]model.User

// summary falls back to the bare id for users the store does not know.
func (idx userIndex) summary(id string) model.UserSummary {
	if u, ok := idx[id]; ok {
		return u.Summary()
	}
	return model.UserSummary{ID: id}
}

func usersByID(ctx context.Context, tx repository.Tx, ids []string) (userIndex, error) {
	users, err := tx.UsersByIDs(ctx, lo.Uniq(ids))
	if err != nil {
		return nil, err
	}
	return lo.KeyBy(users, func(u model.User) string { return u.ID }), nil
}
