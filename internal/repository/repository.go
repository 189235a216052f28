// Package repository implements persistence for events, swap requests and
// users behind a single unit-of-work abstraction.
//
// Every read-then-write decision in the service layer runs inside
// Store.WithinTx. Implementations must guarantee that the callback observes a
// consistent snapshot of the rows it locked and that either all of its writes
// become visible or none do.
package repository

import (
	"context"

	"github.com/Shivanand-hulikatti/slotswap/internal/model"
)

// Store hands out transactions.
type Store interface {
	// WithinTx runs fn in one transaction. A non-nil error from fn rolls
	// everything back and is returned unchanged.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// SwapFilter selects pending swap requests by participant. Empty fields
// match anything.
type SwapFilter struct {
	RequesterID string
	ReceiverID  string
}

// Tx is the set of operations available inside a unit of work.
//
// Lookups of a single row by id return an error wrapping model.ErrNotFound
// when the row does not exist. The ForUpdate variants hold a row lock until
// the transaction ends.
type Tx interface {
	// LockOwner serialises calendar writes for one owner so overlap checks
	// cannot race with each other.
	LockOwner(ctx context.Context, ownerID string) error

	EventForUpdate(ctx context.Context, id string) (*model.Event, error)
	// EventsByOwner returns the owner's events ordered by start time.
	EventsByOwner(ctx context.Context, ownerID string) ([]model.Event, error)
	// SwappableEvents returns SWAPPABLE events not owned by excludingOwner,
	// ordered by start time.
	SwappableEvents(ctx context.Context, excludingOwner string) ([]model.Event, error)
	EventsByIDs(ctx context.Context, ids []string) ([]model.Event, error)
	InsertEvent(ctx context.Context, e *model.Event) error
	UpdateEvent(ctx context.Context, e *model.Event) error
	DeleteEvent(ctx context.Context, id string) error

	InsertSwap(ctx context.Context, s *model.SwapRequest) error
	SwapForUpdate(ctx context.Context, id string) (*model.SwapRequest, error)
	UpdateSwap(ctx context.Context, s *model.SwapRequest) error
	// PendingSwaps returns PENDING requests matching f, newest first.
	PendingSwaps(ctx context.Context, f SwapFilter) ([]model.SwapRequest, error)

	// InsertUser fails with model.ErrConflict when the email is taken.
	InsertUser(ctx context.Context, u *model.User) error
	UserByID(ctx context.Context, id string) (*model.User, error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UsersByIDs(ctx context.Context, ids []string) ([]model.User, error)
}
