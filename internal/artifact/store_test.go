package artifact_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/artivault/internal/artifact"
)

func openTestStore(t *testing.T) *artifact.Store {
	t.Helper()
	store, err := artifact.OpenStore(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Save_And_Get(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTestStore(t)

	a := artifact.New("Main Entry Point", artifact.TypeCode,
		"package main\n\nfunc main() {}", time.Now().UTC())
	a.Language = "go"

	require.NoError(t, store.Save(ctx, "conv-1", a))

	got, err := store.Get(ctx, "conv-1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, artifact.TypeCode, got.Type)
	assert.Equal(t, "go", got.Language)
	assert.Equal(t, a.Content, got.Content)
	assert.True(t, a.CreatedAt.Equal(got.CreatedAt))
}

func TestStore_Get_NotFound(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	_, err := store.Get(context.Background(), "conv-1", "missing")
	assert.ErrorIs(t, err, artifact.ErrNotFound)
}

func TestStore_Save_EmptyID(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	err := store.Save(context.Background(), "conv-1", artifact.Artifact{})
	assert.Error(t, err)
}

func TestStore_ListByConversation_OrderedOldestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTestStore(t)

	base := time.Now().UTC()
	newest := artifact.New("part", artifact.TypeCode, "c", base.Add(2*time.Second))
	oldest := artifact.New("part", artifact.TypeCode, "a", base)
	middle := artifact.New("part", artifact.TypeCode, "b", base.Add(time.Second))

	// Insert out of order; List must sort by creation time.
	for _, a := range []artifact.Artifact{newest, oldest, middle} {
		require.NoError(t, store.Save(ctx, "conv-1", a))
	}
	require.NoError(t, store.Save(ctx, "conv-2", artifact.New("other", artifact.TypeMarkdown, "x", base)))

	list, err := store.ListByConversation(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].Content)
	assert.Equal(t, "b", list[1].Content)
	assert.Equal(t, "c", list[2].Content)
}

func TestStore_DeleteByConversation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTestStore(t)

	a := artifact.New("doc", artifact.TypeMarkdown, "# hi", time.Now().UTC())
	require.NoError(t, store.Save(ctx, "conv-1", a))

	require.NoError(t, store.DeleteByConversation(ctx, "conv-1"))

	list, err := store.ListByConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}
