package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/slotswap/internal/mocks"
	"github.com/Shivanand-hulikatti/slotswap/internal/model"
	"github.com/Shivanand-hulikatti/slotswap/internal/repository"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2030, 3, 4, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store    *repository.MemoryStore
	events   *EventService
	swaps    *SwapService
	notifier *mocks.MockNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	store := repository.NewMemoryStore()
	clock := fixedClock{now: testNow}
	notifier := mocks.NewMockNotifier(ctrl)
	return &fixture{
		store:    store,
		events:   NewEventService(store, clock, log, DefaultPastGrace),
		swaps:    NewSwapService(store, notifier, clock, log),
		notifier: notifier,
	}
}

// at returns testNow shifted by d.
func at(d time.Duration) time.Time { return testNow.Add(d) }

func (f *fixture) createEvent(t *testing.T, owner, title string, start, end time.Duration) *model.Event {
	t.Helper()
	e, err := f.events.Create(context.Background(), owner, model.CreateEventRequest{
		Title:     title,
		StartTime: at(start),
		EndTime:   at(end),
	})
	require.NoError(t, err)
	return e
}

func (f *fixture) createSwappable(t *testing.T, owner, title string, start, end time.Duration) *model.Event {
	t.Helper()
	e := f.createEvent(t, owner, title, start, end)
	status := model.StatusSwappable
	e, err := f.events.Update(context.Background(), e.ID, owner, model.UpdateEventRequest{Status: &status})
	require.NoError(t, err)
	return e
}

func (f *fixture) event(t *testing.T, id string) model.Event {
	t.Helper()
	var out model.Event
	require.NoError(t, f.store.WithinTx(context.Background(), func(tx repository.Tx) error {
		found, err := tx.EventsByIDs(context.Background(), []string{id})
		require.NoError(t, err)
		require.Len(t, found, 1)
		out = found[0]
		return nil
	}))
	return out
}

func (f *fixture) swap(t *testing.T, id string) model.SwapRequest {
	t.Helper()
	var out model.SwapRequest
	require.NoError(t, f.store.WithinTx(context.Background(), func(tx repository.Tx) error {
		s, err := tx.SwapForUpdate(context.Background(), id)
		require.NoError(t, err)
		out = *s
		return nil
	}))
	return out
}
