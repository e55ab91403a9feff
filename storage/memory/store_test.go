package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flockhq/eventkit/event"
	"github.com/flockhq/eventkit/storage"
)

func storageErrType(t *testing.T, err error) storage.ErrorType {
	t.Helper()
	var serr *storage.Error
	require.True(t, errors.As(err, &serr), "expected *storage.Error, got %v", err)
	return serr.Type
}

func testEvent() *event.Event {
	return &event.Event{
		Title:          "Bible Study",
		Start:          time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC),
		End:            time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC),
		RecurrenceRule: "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO",
		Visibility:     event.VisibilityPublic,
	}
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()
	store := New()

	ev := testEvent()
	require.NoError(t, store.CreateEvent(ctx, ev))
	assert.NotEmpty(t, ev.ID, "create assigns an id")
	assert.NotEmpty(t, ev.ETag, "create assigns an etag")

	got, err := store.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, *ev, *got)

	t.Run("explicit id is kept", func(t *testing.T) {
		ev := testEvent()
		ev.ID = "fixed-id"
		require.NoError(t, store.CreateEvent(ctx, ev))
		assert.Equal(t, "fixed-id", ev.ID)
	})

	t.Run("duplicate id is rejected", func(t *testing.T) {
		ev := testEvent()
		ev.ID = "fixed-id"
		err := store.CreateEvent(ctx, ev)
		assert.Equal(t, storage.ErrAlreadyExists, storageErrType(t, err))
	})

	t.Run("nil event is rejected", func(t *testing.T) {
		err := store.CreateEvent(ctx, nil)
		assert.Equal(t, storage.ErrInvalidInput, storageErrType(t, err))
	})
}

func TestUpdateEvent(t *testing.T) {
	ctx := context.Background()
	store := New()

	ev := testEvent()
	require.NoError(t, store.CreateEvent(ctx, ev))
	created := ev.ETag

	ev.Title = "Bible Study (moved)"
	require.NoError(t, store.UpdateEvent(ctx, ev))
	assert.NotEqual(t, created, ev.ETag, "update rotates the etag")

	got, err := store.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bible Study (moved)", got.Title)

	t.Run("stale etag conflicts", func(t *testing.T) {
		stale := *ev
		stale.ETag = created
		err := store.UpdateEvent(ctx, &stale)
		assert.Equal(t, storage.ErrConflict, storageErrType(t, err))
	})

	t.Run("empty etag skips the check", func(t *testing.T) {
		force := *ev
		force.ETag = ""
		require.NoError(t, store.UpdateEvent(ctx, &force))
		assert.NotEmpty(t, force.ETag)
	})

	t.Run("unknown event", func(t *testing.T) {
		missing := testEvent()
		missing.ID = "missing"
		err := store.UpdateEvent(ctx, missing)
		assert.Equal(t, storage.ErrNotFound, storageErrType(t, err))
	})
}

func TestDeleteEvent(t *testing.T) {
	ctx := context.Background()
	store := New()

	ev := testEvent()
	require.NoError(t, store.CreateEvent(ctx, ev))
	require.NoError(t, store.CreateException(ctx, ev.ID, ev.Start))

	require.NoError(t, store.DeleteEvent(ctx, ev.ID))

	_, err := store.GetEvent(ctx, ev.ID)
	assert.Equal(t, storage.ErrNotFound, storageErrType(t, err))

	t.Run("exceptions are cascaded", func(t *testing.T) {
		// Recreating under the same id must not resurrect old markers.
		again := testEvent()
		again.ID = ev.ID
		require.NoError(t, store.CreateEvent(ctx, again))
		series, err := store.GetSeries(ctx, ev.ID)
		require.NoError(t, err)
		assert.Zero(t, series.Exceptions.Len())
	})

	t.Run("unknown event", func(t *testing.T) {
		err := store.DeleteEvent(ctx, "missing")
		assert.Equal(t, storage.ErrNotFound, storageErrType(t, err))
	})
}

func TestCreateException(t *testing.T) {
	ctx := context.Background()
	store := New()

	ev := testEvent()
	require.NoError(t, store.CreateEvent(ctx, ev))

	date := time.Date(2024, 1, 8, 14, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateException(ctx, ev.ID, date))
	require.NoError(t, store.CreateException(ctx, ev.ID, date), "idempotent")

	series, err := store.GetSeries(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date}, series.Exceptions.Dates())

	t.Run("unknown event", func(t *testing.T) {
		err := store.CreateException(ctx, "missing", date)
		assert.Equal(t, storage.ErrNotFound, storageErrType(t, err))
	})
}

func TestGetSeries(t *testing.T) {
	ctx := context.Background()
	store := New()

	ev := testEvent()
	require.NoError(t, store.CreateEvent(ctx, ev))

	series, err := store.GetSeries(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, *ev, series.Event)
	assert.Zero(t, series.Exceptions.Len())

	_, err = store.GetSeries(ctx, "missing")
	assert.Equal(t, storage.ErrNotFound, storageErrType(t, err))
}
