package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granada-sport/server/internal/model"
	"github.com/granada-sport/server/internal/queue"
)

func newCatalog(store *memStore) (*EventCatalog, *recorder, *countingInvalidator) {
	rec := &recorder{}
	inv := &countingInvalidator{}
	c := NewEventCatalog(memEvents{store}, rec, inv, zerolog.Nop()).WithClock(fixedClock(t0))
	return c, rec, inv
}

func details(sport string, at time.Time) model.EventDetails {
	return model.EventDetails{Description: "sunday match", Date: at, Location: "Granada", Sport: sport}
}

func TestCreateEventLowercasesSport(t *testing.T) {
	c, rec, inv := newCatalog(newMemStore())

	e, err := c.Create(context.Background(), 1, details("Football", t0.Add(24*time.Hour)))
	require.NoError(t, err)
	assert.NotZero(t, e.ID)
	assert.Equal(t, "football", e.Sport)
	assert.True(t, e.Active)
	assert.Equal(t, uint64(1), e.OrganizerID)
	assert.Equal(t, 1, inv.calls)
	assert.Equal(t, []string{queue.KindEventCreated}, rec.kinds())
}

func TestListOnlyUpcomingActive(t *testing.T) {
	c, _, _ := newCatalog(newMemStore())
	ctx := context.Background()

	future, err := c.Create(ctx, 1, details("football", t0.Add(time.Hour)))
	require.NoError(t, err)
	_, err = c.Create(ctx, 1, details("football", t0.Add(-time.Hour)))
	require.NoError(t, err)
	deleted, err := c.Create(ctx, 1, details("football", t0.Add(2*time.Hour)))
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, deleted.ID, 1))
	tennis, err := c.Create(ctx, 2, details("tennis", t0.Add(3*time.Hour)))
	require.NoError(t, err)

	all, err := c.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{future.ID, tennis.ID}, ids(all))

	onlyTennis, err := c.List(ctx, ListFilter{Sport: "TENNIS"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{tennis.ID}, ids(onlyTennis))

	none, err := c.List(ctx, ListFilter{Sport: "padel"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestListPagination(t *testing.T) {
	c, _, _ := newCatalog(newMemStore())
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := c.Create(ctx, 1, details("run", t0.Add(time.Hour)))
		require.NoError(t, err)
	}

	page, err := c.List(ctx, ListFilter{Page: Page{Skip: 1, Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, ids(page))

	past, err := c.List(ctx, ListFilter{Page: Page{Skip: 10, Limit: 2}})
	require.NoError(t, err)
	assert.Empty(t, past)

	neg, err := c.List(ctx, ListFilter{Page: Page{Skip: -3}})
	require.NoError(t, err)
	assert.Len(t, neg, 5)
}

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Skip: 0, Limit: DefaultLimit}, Page{Skip: -1}.normalize())
	assert.Equal(t, Page{Skip: 3, Limit: MaxLimit}, Page{Skip: 3, Limit: 5000}.normalize())
	assert.Equal(t, Page{Skip: 0, Limit: 7}, Page{Limit: 7}.normalize())
}

func TestListByOrganizerIncludesPast(t *testing.T) {
	c, _, _ := newCatalog(newMemStore())
	ctx := context.Background()
	past, err := c.Create(ctx, 1, details("football", t0.Add(-48*time.Hour)))
	require.NoError(t, err)
	_, err = c.Create(ctx, 2, details("football", t0.Add(time.Hour)))
	require.NoError(t, err)

	mine, err := c.ListByOrganizer(ctx, 1, Page{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{past.ID}, ids(mine))
}

func TestGetEventOnlyForOrganizer(t *testing.T) {
	c, _, _ := newCatalog(newMemStore())
	ctx := context.Background()
	e, err := c.Create(ctx, 1, details("football", t0.Add(time.Hour)))
	require.NoError(t, err)

	got, err := c.Get(ctx, e.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)

	_, err = c.Get(ctx, e.ID, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Delete(ctx, e.ID, 1))
	_, err = c.Get(ctx, e.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateEvent(t *testing.T) {
	c, rec, inv := newCatalog(newMemStore())
	ctx := context.Background()
	e, err := c.Create(ctx, 1, details("football", t0.Add(time.Hour)))
	require.NoError(t, err)

	later := t0.Add(time.Minute)
	c.WithClock(fixedClock(later))
	got, err := c.Update(ctx, e.ID, 1, model.EventDetails{Description: "moved", Date: t0.Add(5 * time.Hour), Location: "Jaén", Sport: "Basket"})
	require.NoError(t, err)
	assert.Equal(t, "moved", got.Description)
	assert.Equal(t, "basket", got.Sport)
	assert.Equal(t, "Jaén", got.Location)
	assert.Equal(t, later, got.UpdatedAt)
	assert.Equal(t, 2, inv.calls)
	assert.Equal(t, []string{queue.KindEventCreated, queue.KindEventUpdated}, rec.kinds())

	_, err = c.Update(ctx, e.ID, 2, details("x", t0))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Update(ctx, 999, 1, details("x", t0))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteEvent(t *testing.T) {
	c, _, _ := newCatalog(newMemStore())
	ctx := context.Background()
	e, err := c.Create(ctx, 1, details("football", t0.Add(time.Hour)))
	require.NoError(t, err)

	assert.ErrorIs(t, c.Delete(ctx, e.ID, 2), ErrNotFound)
	require.NoError(t, c.Delete(ctx, e.ID, 1))
	assert.ErrorIs(t, c.Delete(ctx, e.ID, 1), ErrNotFound)

	_, err = c.Update(ctx, e.ID, 1, details("x", t0))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogStorageErrorIsNotNotFound(t *testing.T) {
	store := newMemStore()
	store.fail = errStorage
	c, _, _ := newCatalog(store)

	_, err := c.Get(context.Background(), 1, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, errStorage)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = c.List(context.Background(), ListFilter{})
	assert.ErrorIs(t, err, errStorage)
}

func ids(events []model.Event) []uint64 {
	out := make([]uint64, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}
