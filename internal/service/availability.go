//go:generate go run go.uber.org/mock/mockgen -source=availability.go -destination=../mocks/mock_swappable_cache.go -package=mocks
package service

import (
	"context"
	"log/slog"

	"github.com/Shivanand-hulikatti/slotswap/internal/model"
)

// SwappableCache stores swappable-slot listings per viewer. Entries are
// expected to expire on their own; nothing invalidates them on write, so a
// cached listing can lag the store by up to the entry TTL and may still show
// slots that went SWAP_PENDING or changed owner in the meantime.
type SwappableCache interface {
	Get(ctx context.Context, viewerID string) ([]model.SwappableSlot, bool, error)
	Set(ctx context.Context, viewerID string, slots []model.SwappableSlot) error
}

// AvailabilityIndex is the read side for slots open to swapping. It has no
// state of its own beyond an optional cache. A stale listing is harmless:
// Propose re-checks statuses inside its own transaction.
type AvailabilityIndex struct {
	events *EventService
	cache  SwappableCache
	log    *slog.Logger
}

// NewAvailabilityIndex constructs an AvailabilityIndex. cache may be nil.
func NewAvailabilityIndex(events *EventService, cache SwappableCache, log *slog.Logger) *AvailabilityIndex {
	return &AvailabilityIndex{events: events, cache: cache, log: log}
}

// ListSwappable returns open slots owned by anyone but excludingOwner.
func (a *AvailabilityIndex) ListSwappable(ctx context.Context, excludingOwner string) ([]model.SwappableSlot, error) {
	if a.cache != nil {
		slots, ok, err := a.cache.Get(ctx, excludingOwner)
		if err != nil {
			a.log.Warn("swappable cache read failed", "error", err)
		} else if ok {
			return slots, nil
		}
	}

	slots, err := a.events.FindSwappable(ctx, excludingOwner)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, excludingOwner, slots); err != nil {
			a.log.Warn("swappable cache write failed", "error", err)
		}
	}
	return slots, nil
}
