package repository

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/Shivanand-hulikatti/slotswap/internal/model"
	"github.com/samber/lo"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store used for local development and tests.
//
// A single mutex is held for the whole unit of work, so transactions are
// fully serialised. Writes go to a copy of the state which replaces the
// committed state only when the callback returns nil.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		events: make(map[string]model.Event),
		swaps:  make(map[string]model.SwapRequest),
		users:  make(map[string]model.User),
	}}
}

type memState struct {
	events    map[string]model.Event
	swaps     map[string]model.SwapRequest
	swapOrder []string
	users     map[string]model.User
}

func (s *memState) clone() *memState {
	return &memState{
		events:    maps.Clone(s.events),
		swaps:     maps.Clone(s.swaps),
		swapOrder: slices.Clone(s.swapOrder),
		users:     maps.Clone(s.users),
	}
}

// WithinTx runs fn against a private copy of the state and publishes the copy
// when fn succeeds.
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.state.clone()
	if err := fn(&memTx{s: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

type memTx struct {
	s *memState
}

func byStart(a, b model.Event) int {
	if c := a.StartTime.Compare(b.StartTime); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// LockOwner is a no-op: the store mutex already serialises every transaction.
func (t *memTx) LockOwner(context.Context, string) error { return nil }

func (t *memTx) EventForUpdate(_ context.Context, id string) (*model.Event, error) {
	e, ok := t.s.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: event %s", model.ErrNotFound, id)
	}
	return &e, nil
}

func (t *memTx) EventsByOwner(_ context.Context, ownerID string) ([]model.Event, error) {
	events := lo.Filter(lo.Values(t.s.events), func(e model.Event, _ int) bool {
		return e.OwnerID == ownerID
	})
	slices.SortFunc(events, byStart)
	return events, nil
}

func (t *memTx) SwappableEvents(_ context.Context, excludingOwner string) ([]model.Event, error) {
	events := lo.Filter(lo.Values(t.s.events), func(e model.Event, _ int) bool {
		return e.Status == model.StatusSwappable && e.OwnerID != excludingOwner
	})
	slices.SortFunc(events, byStart)
	return events, nil
}

func (t *memTx) EventsByIDs(_ context.Context, ids []string) ([]model.Event, error) {
	return lo.FilterMap(ids, func(id string, _ int) (model.Event, bool) {
		e, ok := t.s.events[id]
		return e, ok
	}), nil
}

func (t *memTx) InsertEvent(_ context.Context, e *model.Event) error {
	if _, exists := t.s.events[e.ID]; exists {
		return fmt.Errorf("insert event: duplicate id %s", e.ID)
	}
	t.s.events[e.ID] = *e
	return nil
}

func (t *memTx) UpdateEvent(_ context.Context, e *model.Event) error {
	if _, ok := t.s.events[e.ID]; !ok {
		return fmt.Errorf("%w: event %s", model.ErrNotFound, e.ID)
	}
	t.s.events[e.ID] = *e
	return nil
}

func (t *memTx) DeleteEvent(_ context.Context, id string) error {
	if _, ok := t.s.events[id]; !ok {
		return fmt.Errorf("%w: event %s", model.ErrNotFound, id)
	}
	delete(t.s.events, id)
	return nil
}

func (t *memTx) InsertSwap(_ context.Context, s *model.SwapRequest) error {
	if _, exists := t.s.swaps[s.ID]; exists {
		return fmt.Errorf("insert swap request: duplicate id %s", s.ID)
	}
	for _, other := range t.s.swaps {
		if other.Status != model.SwapPending {
			continue
		}
		locked := []string{other.OfferedSlotID, other.RequestedSlotID}
		if lo.Contains(locked, s.OfferedSlotID) || lo.Contains(locked, s.RequestedSlotID) {
			return fmt.Errorf("%w: slot already has a pending swap request", model.ErrConflict)
		}
	}
	t.s.swaps[s.ID] = *s
	t.s.swapOrder = append(t.s.swapOrder, s.ID)
	return nil
}

func (t *memTx) SwapForUpdate(_ context.Context, id string) (*model.SwapRequest, error) {
	s, ok := t.s.swaps[id]
	if !ok {
		return nil, fmt.Errorf("%w: swap request %s", model.ErrNotFound, id)
	}
	return &s, nil
}

func (t *memTx) UpdateSwap(_ context.Context, s *model.SwapRequest) error {
	current, ok := t.s.swaps[s.ID]
	if !ok {
		return fmt.Errorf("%w: swap request %s", model.ErrNotFound, s.ID)
	}
	current.Status = s.Status
	current.UpdatedAt = s.UpdatedAt
	t.s.swaps[s.ID] = current
	return nil
}

func (t *memTx) PendingSwaps(_ context.Context, f SwapFilter) ([]model.SwapRequest, error) {
	var out []model.SwapRequest
	// Walk insertion order backwards so equal timestamps still list newest first.
	for _, id := range slices.Backward(t.s.swapOrder) {
		s := t.s.swaps[id]
		if s.Status != model.SwapPending {
			continue
		}
		if f.RequesterID != "" && s.RequesterID != f.RequesterID {
			continue
		}
		if f.ReceiverID != "" && s.ReceiverID != f.ReceiverID {
			continue
		}
		out = append(out, s)
	}
	slices.SortStableFunc(out, func(a, b model.SwapRequest) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (t *memTx) InsertUser(_ context.Context, u *model.User) error {
	for _, other := range t.s.users {
		if strings.EqualFold(other.Email, u.Email) {
			return fmt.Errorf("%w: user with this email already exists", model.ErrConflict)
		}
	}
	t.s.users[u.ID] = *u
	return nil
}

func (t *memTx) UserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := t.s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", model.ErrNotFound, id)
	}
	return &u, nil
}

func (t *memTx) UserByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := lo.Find(lo.Values(t.s.users), func(u model.User) bool {
		return u.Email == email
	})
	if !ok {
		return nil, fmt.Errorf("%w: user", model.ErrNotFound)
	}
	return &u, nil
}

func (t *memTx) UsersByIDs(_ context.Context, ids []string) ([]model.User, error) {
	return lo.FilterMap(ids, func(id string, _ int) (model.User, bool) {
		u, ok := t.s.users[id]
		return u, ok
	}), nil
}
