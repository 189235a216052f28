package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/slotswap/internal/model"
	"github.com/Shivanand-hulikatti/slotswap/internal/repository"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSwapService_AcceptExchangesOwners(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	a := f.createSwappable(t, "alice", "Shift 1", time.Hour, 2*time.Hour)
	b := f.createSwappable(t, "bob", "Shift 2", 3*time.Hour, 4*time.Hour)

	// The request id is only known after Propose, so match the payload loosely.
	f.notifier.EXPECT().Notify(gomock.Any(), "bob", model.NotifySwapRequested, gomock.Cond(func(p any) bool {
		payload, ok := p.(model.SwapRequestedPayload)
		return ok && payload.OfferedTitle == "Shift 1" && payload.RequestedTitle == "Shift 2" && payload.RequestID != ""
	})).Return(nil)

	swap, err := f.swaps.Propose(ctx, "alice", model.ProposeSwapRequest{OfferedSlotID: a.ID, RequestedSlotID: b.ID})
	req.NoError(err)
	req.Equal(model.SwapPending, swap.Status)
	req.Equal("alice", swap.RequesterID)
	req.Equal("bob", swap.ReceiverID)
	req.Equal(model.StatusSwapPending, f.event(t, a.ID).Status)
	req.Equal(model.StatusSwapPending, f.event(t, b.ID).Status)

	f.notifier.EXPECT().Notify(gomock.Any(), "alice", model.NotifySwapResolved, model.SwapResolvedPayload{
		RequestID:         swap.ID,
		Accepted:          true,
		CounterpartyTitle: "Shift 2",
		Message:           "Your swap request has been accepted!",
	}).Return(nil)

	resolved, err := f.swaps.Respond(ctx, swap.ID, "bob", model.RespondSwapRequest{Accept: lo.ToPtr(true)})
	req.NoError(err)
	req.Equal(model.SwapAccepted, resolved.Status)

	gotA, gotB := f.event(t, a.ID), f.event(t, b.ID)
	req.Equal("bob", gotA.OwnerID)
	req.Equal("alice", gotB.OwnerID)
	req.Equal(model.StatusBusy, gotA.Status)
	req.Equal(model.StatusBusy, gotB.Status)
	req.Equal(model.SwapAccepted, f.swap(t, swap.ID).Status)

	aliceEvents, err := f.events.ListByOwner(ctx, "alice")
	req.NoError(err)
	req.Equal([]string{b.ID}, lo.Map(aliceEvents, func(e model.Event, _ int) string { return e.ID }))
}

func TestSwapService_AcceptDoesNotRecheckOverlap(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	a := f.createSwappable(t, "alice", "Shift 1", time.Hour, 2*time.Hour)
	busy := f.createEvent(t, "alice", "Dentist", 3*time.Hour, 4*time.Hour)
	b := f.createSwappable(t, "bob", "Shift 2", 3*time.Hour, 4*time.Hour)

	swap, err := f.swaps.Propose(ctx, "alice", model.ProposeSwapRequest{OfferedSlotID: a.ID, RequestedSlotID: b.ID})
	req.NoError(err)
	_, err = f.swaps.Respond(ctx, swap.ID, "bob", model.RespondSwapRequest{Accept: lo.ToPtr(true)})
	req.NoError(err)

	// Ownership moves as-is; the incoming slot may clash with the new owner's calendar.
	gotB := f.event(t, b.ID)
	req.Equal("alice", gotB.OwnerID)
	req.True(gotB.Overlaps(busy.StartTime, busy.EndTime))

	aliceEvents, err := f.events.ListByOwner(ctx, "alice")
	req.NoError(err)
	req.ElementsMatch([]string{busy.ID, b.ID}, lo.Map(aliceEvents, func(e model.Event, _ int) string { return e.ID }))
}

func TestSwapService_RejectReleasesSlots(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.EXPECT().Notify(gomock.Any(), "bob", model.NotifySwapRequested, gomock.Any()).Return(nil)

	a := f.createSwappable(t, "alice", "Shift 1", time.Hour, 2*time.Hour)
	b := f.createSwappable(t, "bob", "Shift 2", 3*time.Hour, 4*time.Hour)
	swap, err := f.swaps.Propose(ctx, "alice", model.ProposeSwapRequest{OfferedSlotID: a.ID, RequestedSlotID: b.ID})
	req.NoError(err)

	f.notifier.EXPECT().Notify(gomock.Any(), "alice", model.NotifySwapResolved, model.SwapResolvedPayload{
		RequestID:         swap.ID,
		Accepted:          false,
		CounterpartyTitle: "Shift 2",
		Message:           "Your swap request was rejected.",
	}).Return(nil)

	resolved, err := f.swaps.Respond(ctx, swap.ID, "bob", model.RespondSwapRequest{Accept: lo.ToPtr(false)})
	req.NoError(err)
	req.Equal(model.SwapRejected, resolved.Status)

	gotA, gotB := f.event(t, a.ID), f.event(t, b.ID)
	req.Equal("alice", gotA.OwnerID)
	req.Equal("bob", gotB.OwnerID)
	req.Equal(model.StatusSwappable, gotA.Status)
	req.Equal(model.StatusSwappable, gotB.Status)

	t.Run("should refuse a second response", func(t *testing.T) {
		_, err := f.swaps.Respond(ctx, swap.ID, "bob", model.RespondSwapRequest{Accept: lo.ToPtr(true)})
		require.ErrorIs(t, err, model.ErrConflict)
		require.Equal(t, "alice", f.event(t, a.ID).OwnerID)
	})
}

func TestSwapService_ProposeErrors(t *testing.T) {
	ctx := context.Background()

	type setup struct {
		mine, theirs, busy, pending *model.Event
	}
	build := func(t *testing.T) (*fixture, setup) {
		f := newFixture(t)
		f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
		s := setup{
			mine:    f.createSwappable(t, "alice", "Mine", time.Hour, 2*time.Hour),
			theirs:  f.createSwappable(t, "bob", "Theirs", time.Hour, 2*time.Hour),
			busy:    f.createEvent(t, "bob", "Busy", 3*time.Hour, 4*time.Hour),
			pending: f.createSwappable(t, "carol", "Pending", time.Hour, 2*time.Hour),
		}
		dave := f.createSwappable(t, "dave", "Dave's", time.Hour, 2*time.Hour)
		_, err := f.swaps.Propose(ctx, "dave", model.ProposeSwapRequest{OfferedSlotID: dave.ID, RequestedSlotID: s.pending.ID})
		require.NoError(t, err)
		return f, s
	}

	tests := []struct {
		name    string
		actor   string
		request func(s setup) model.ProposeSwapRequest
		wantErr error
	}{
		{
			name:    "missing offered slot id",
			actor:   "alice",
			request: func(s setup) model.ProposeSwapRequest { return model.ProposeSwapRequest{RequestedSlotID: s.theirs.ID} },
			wantErr: model.ErrValidation,
		},
		{
			name:  "same slot on both sides",
			actor: "alice",
			request: func(s setup) model.ProposeSwapRequest {
				return model.ProposeSwapRequest{OfferedSlotID: s.mine.ID, RequestedSlotID: s.mine.ID}
			},
			wantErr: model.ErrValidation,
		},
		{
			name:  "unknown requested slot",
			actor: "alice",
			request: func(s setup) model.ProposeSwapRequest {
				return model.ProposeSwapRequest{OfferedSlotID: s.mine.ID, RequestedSlotID: "missing"}
			},
			wantErr: model.ErrNotFound,
		},
		{
			name:  "offering a slot the caller does not own",
			actor: "alice",
			request: func(s setup) model.ProposeSwapRequest {
				return model.ProposeSwapRequest{OfferedSlotID: s.theirs.ID, RequestedSlotID: s.mine.ID}
			},
			wantErr: model.ErrAuthorization,
		},
		{
			name:  "requesting a busy slot",
			actor: "alice",
			request: func(s setup) model.ProposeSwapRequest {
				return model.ProposeSwapRequest{OfferedSlotID: s.mine.ID, RequestedSlotID: s.busy.ID}
			},
			wantErr: model.ErrConflict,
		},
		{
			name:  "requesting a slot already in a pending swap",
			actor: "alice",
			request: func(s setup) model.ProposeSwapRequest {
				return model.ProposeSwapRequest{OfferedSlotID: s.mine.ID, RequestedSlotID: s.pending.ID}
			},
			wantErr: model.ErrConflict,
		},
		{
			name:  "offering a busy slot",
			actor: "bob",
			request: func(s setup) model.ProposeSwapRequest {
				return model.ProposeSwapRequest{OfferedSlotID: s.busy.ID, RequestedSlotID: s.mine.ID}
			},
			wantErr: model.ErrConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			f, s := build(t)

			_, err := f.swaps.Propose(ctx, tt.actor, tt.request(s))
			req.ErrorIs(err, tt.wantErr)

			req.Equal(model.StatusSwappable, f.event(t, s.mine.ID).Status)
			req.Equal(model.StatusSwappable, f.event(t, s.theirs.ID).Status)
			req.Equal(model.StatusBusy, f.event(t, s.busy.ID).Status)
			req.Equal(model.StatusSwapPending, f.event(t, s.pending.ID).Status)

			outgoing, err := f.swaps.ListOutgoing(ctx, tt.actor)
			req.NoError(err)
			req.Empty(outgoing)
		})
	}
}

func TestSwapService_ConcurrentProposals(t *testing.T) {
	ctx := context.Background()
	const contenders = 8

	t.Run("should let only one proposal offer the same slot", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), model.NotifySwapRequested, gomock.Any()).Return(nil).Times(1)

		offered := f.createSwappable(t, "alice", "Offered", time.Hour, 2*time.Hour)
		targets := make([]*model.Event, contenders)
		for i := range targets {
			targets[i] = f.createSwappable(t, fmt.Sprintf("user-%d", i), "Target", time.Hour, 2*time.Hour)
		}

		errs := make([]error, contenders)
		var wg sync.WaitGroup
		for i := range contenders {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = f.swaps.Propose(ctx, "alice", model.ProposeSwapRequest{
					OfferedSlotID:   offered.ID,
					RequestedSlotID: targets[i].ID,
				})
			}()
		}
		wg.Wait()

		succeeded := lo.CountBy(errs, func(err error) bool { return err == nil })
		req.Equal(1, succeeded)
		for _, err := range errs {
			if err != nil {
				req.ErrorIs(err, model.ErrConflict)
			}
		}
		pending := lo.CountBy(targets, func(e *model.Event) bool {
			return f.event(t, e.ID).Status == model.StatusSwapPending
		})
		req.Equal(1, pending)
	})

	t.Run("should let only one proposal request the same slot", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		f.notifier.EXPECT().Notify(gomock.Any(), "bob", model.NotifySwapRequested, gomock.Any()).Return(nil).Times(1)

		requested := f.createSwappable(t, "bob", "Wanted", time.Hour, 2*time.Hour)
		offers := make([]*model.Event, contenders)
		for i := range offers {
			offers[i] = f.createSwappable(t, fmt.Sprintf("user-%d", i), "Offer", time.Hour, 2*time.Hour)
		}

		errs := make([]error, contenders)
		var wg sync.WaitGroup
		for i := range contenders {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = f.swaps.Propose(ctx, fmt.Sprintf("user-%d", i), model.ProposeSwapRequest{
					OfferedSlotID:   offers[i].ID,
					RequestedSlotID: requested.ID,
				})
			}()
		}
		wg.Wait()

		req.Equal(1, lo.CountBy(errs, func(err error) bool { return err == nil }))
		for _, err := range errs {
			if err != nil {
				req.ErrorIs(err, model.ErrConflict)
			}
		}
		incoming, err := f.swaps.ListIncoming(ctx, "bob")
		req.NoError(err)
		req.Len(incoming, 1)
	})
}

func TestSwapService_ConcurrentResponses(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.EXPECT().Notify(gomock.Any(), "bob", model.NotifySwapRequested, gomock.Any()).Return(nil)
	f.notifier.EXPECT().Notify(gomock.Any(), "alice", model.NotifySwapResolved, gomock.Any()).Return(nil).Times(1)

	a := f.createSwappable(t, "alice", "Shift 1", time.Hour, 2*time.Hour)
	b := f.createSwappable(t, "bob", "Shift 2", 3*time.Hour, 4*time.Hour)
	swap, err := f.swaps.Propose(ctx, "alice", model.ProposeSwapRequest{OfferedSlotID: a.ID, RequestedSlotID: b.ID})
	req.NoError(err)

	const responders = 6
	errs := make([]error, responders)
	var wg sync.WaitGroup
	for i := range responders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.swaps.Respond(ctx, swap.ID, "bob", model.RespondSwapRequest{Accept: lo.ToPtr(i%2 == 0)})
		}()
	}
	wg.Wait()

	req.Equal(1, lo.CountBy(errs, func(err error) bool { return err == nil }))
	for _, err := range errs {
		if err != nil {
			req.ErrorIs(err, model.ErrConflict)
		}
	}

	final := f.swap(t, swap.ID)
	gotA, gotB := f.event(t, a.ID), f.event(t, b.ID)
	switch final.Status {
	case model.SwapAccepted:
		req.Equal("bob", gotA.OwnerID)
		req.Equal("alice", gotB.OwnerID)
		req.Equal(model.StatusBusy, gotA.Status)
	case model.SwapRejected:
		req.Equal("alice", gotA.OwnerID)
		req.Equal("bob", gotB.OwnerID)
		req.Equal(model.StatusSwappable, gotA.Status)
	default:
		req.Failf("unexpected status", "swap ended as %s", final.Status)
	}
}

func TestSwapService_RespondErrors(t *testing.T) {
	ctx := context.Background()

	build := func(t *testing.T) (*fixture, *model.Event, *model.Event, *model.SwapRequest) {
		f := newFixture(t)
		f.notifier.EXPECT().Notify(gomock.Any(), "bob", model.NotifySwapRequested, gomock.Any()).Return(nil)
		a := f.createSwappable(t, "alice", "Shift 1", time.Hour, 2*time.Hour)
		b := f.createSwappable(t, "bob", "Shift 2", 3*time.Hour, 4*time.Hour)
		swap, err := f.swaps.Propose(ctx, "alice", model.ProposeSwapRequest{OfferedSlotID: a.ID, RequestedSlotID: b.ID})
		require.NoError(t, err)
		return f, a, b, swap
	}

	t.Run("should refuse anyone but the receiver", func(t *testing.T) {
		req := require.New(t)
		f, a, _, swap := build(t)

		for _, actor := range []string{"alice", "mallory"} {
			_, err := f.swaps.Respond(ctx, swap.ID, actor, model.RespondSwapRequest{Accept: lo.ToPtr(true)})
			req.ErrorIs(err, model.ErrAuthorization)
		}
		req.Equal(model.SwapPending, f.swap(t, swap.ID).Status)
		req.Equal("alice", f.event(t, a.ID).OwnerID)
	})

	t.Run("should require an explicit decision", func(t *testing.T) {
		f, _, _, swap := build(t)
		_, err := f.swaps.Respond(ctx, swap.ID, "bob", model.RespondSwapRequest{})
		require.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("should fail for an unknown request", func(t *testing.T) {
		f, _, _, _ := build(t)
		_, err := f.swaps.Respond(ctx, "missing", "bob", model.RespondSwapRequest{Accept: lo.ToPtr(true)})
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("should keep the request pending when one of its events is gone", func(t *testing.T) {
		req := require.New(t)
		f, a, b, swap := build(t)
		req.NoError(f.store.WithinTx(ctx, func(tx repository.Tx) error {
			return tx.DeleteEvent(ctx, b.ID)
		}))

		_, err := f.swaps.Respond(ctx, swap.ID, "bob", model.RespondSwapRequest{Accept: lo.ToPtr(true)})
		req.ErrorIs(err, model.ErrNotFound)
		req.Equal(model.SwapPending, f.swap(t, swap.ID).Status)
		req.Equal(model.StatusSwapPending, f.event(t, a.ID).Status)
		req.Equal("alice", f.event(t, a.ID).OwnerID)
	})
}

func TestSwapService_Listings(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	req.NoError(f.store.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.InsertUser(ctx, &model.User{ID: "bob", Name: "Bob", Email: "bob@example.com", CreatedAt: testNow})
	}))

	a1 := f.createSwappable(t, "alice", "A1", time.Hour, 2*time.Hour)
	a2 := f.createSwappable(t, "alice", "A2", 3*time.Hour, 4*time.Hour)
	b1 := f.createSwappable(t, "bob", "B1", time.Hour, 2*time.Hour)
	b2 := f.createSwappable(t, "bob", "B2", 3*time.Hour, 4*time.Hour)

	first, err := f.swaps.Propose(ctx, "alice", model.ProposeSwapRequest{OfferedSlotID: a1.ID, RequestedSlotID: b1.ID})
	req.NoError(err)
	second, err := f.swaps.Propose(ctx, "alice", model.ProposeSwapRequest{OfferedSlotID: a2.ID, RequestedSlotID: b2.ID})
	req.NoError(err)

	incoming, err := f.swaps.ListIncoming(ctx, "bob")
	req.NoError(err)
	req.Equal([]string{second.ID, first.ID}, lo.Map(incoming, func(v model.SwapView, _ int) string { return v.ID }))
	req.Equal("B2", incoming[0].RequestedSlot.Title)
	req.Equal("A2", incoming[0].OfferedSlot.Title)
	req.Equal(model.UserSummary{ID: "bob", Name: "Bob", Email: "bob@example.com"}, incoming[0].Receiver)
	req.Equal(model.UserSummary{ID: "alice"}, incoming[0].Requester)

	outgoing, err := f.swaps.ListOutgoing(ctx, "alice")
	req.NoError(err)
	req.Len(outgoing, 2)

	empty, err := f.swaps.ListIncoming(ctx, "alice")
	req.NoError(err)
	req.Empty(empty)

	_, err = f.swaps.Respond(ctx, first.ID, "bob", model.RespondSwapRequest{Accept: lo.ToPtr(false)})
	req.NoError(err)
	incoming, err = f.swaps.ListIncoming(ctx, "bob")
	req.NoError(err)
	req.Len(incoming, 1)
	req.Equal(second.ID, incoming[0].ID)
}

func TestSwapService_NotifierFailureDoesNotFailTheSwap(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("socket closed")).Times(2)

	a := f.createSwappable(t, "alice", "Shift 1", time.Hour, 2*time.Hour)
	b := f.createSwappable(t, "bob", "Shift 2", 3*time.Hour, 4*time.Hour)

	swap, err := f.swaps.Propose(ctx, "alice", model.ProposeSwapRequest{OfferedSlotID: a.ID, RequestedSlotID: b.ID})
	req.NoError(err)
	_, err = f.swaps.Respond(ctx, swap.ID, "bob", model.RespondSwapRequest{Accept: lo.ToPtr(true)})
	req.NoError(err)
	req.Equal(model.SwapAccepted, f.swap(t, swap.ID).Status)
}
