package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/internal/audit"
	id "custodia/pkg/domain"
)

func entryAt(action audit.Action, entityID string, t time.Time) audit.Entry {
	return audit.Entry{
		ID:         id.NewAuditID(),
		Action:     action,
		EntityType: "task",
		EntityID:   entityID,
		Timestamp:  t,
	}
}

func TestInMemoryStoreOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, entryAt(audit.ActionTaskCreated, "t-1", base)))
	require.NoError(t, store.Append(ctx, entryAt(audit.ActionEventUploaded, "t-1", base.Add(time.Minute))))
	require.NoError(t, store.Append(ctx, entryAt(audit.ActionTaskCompleted, "t-2", base.Add(2*time.Minute))))

	t.Run("list is newest first", func(t *testing.T) {
		entries, err := store.List(ctx, 10, 0)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, audit.ActionTaskCompleted, entries[0].Action)
		assert.Equal(t, audit.ActionTaskCreated, entries[2].Action)
	})

	t.Run("offset pages past the newest", func(t *testing.T) {
		entries, err := store.List(ctx, 10, 1)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, audit.ActionEventUploaded, entries[0].Action)
	})

	t.Run("entity filter matches type and id", func(t *testing.T) {
		entries, err := store.ListByEntity(ctx, "task", "t-1")
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})
}

func TestInMemoryStoreListByActor(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	actor := id.NewUserID()
	withActor := entryAt(audit.ActionTaskCreated, "t-1", time.Now())
	withActor.ActorID = &actor

	require.NoError(t, store.Append(ctx, withActor))
	require.NoError(t, store.Append(ctx, entryAt(audit.ActionDeviceMismatch, "t-1", time.Now())))

	entries, err := store.ListByActor(ctx, actor.String())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionTaskCreated, entries[0].Action)

	// Anonymous entries never match an actor query.
	entries, err = store.ListByActor(ctx, id.NewUserID().String())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
