package services

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/answer-engine/internal/answerkey"
	"github.com/SAP-F-2025/answer-engine/internal/cache"
	"github.com/SAP-F-2025/answer-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, c cache.CacheService) *AnswerStore {
	t.Helper()
	return NewAnswerStore(c, "test-1", time.Hour, discardLogger())
}

func TestAnswerStore_SetPersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()

	store := newTestStore(t, c)
	store.Load(ctx)
	assert.True(t, store.Set(ctx, 1, answerkey.OptionA))
	assert.True(t, store.Set(ctx, 3, answerkey.OptionC))

	reloaded := newTestStore(t, c)
	answers := reloaded.Load(ctx)
	assert.Equal(t, models.AnswerState{1: answerkey.OptionA, 3: answerkey.OptionC}, answers)
}

func TestAnswerStore_RejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, cache.NewMemoryCache())
	store.Load(ctx)

	assert.False(t, store.Set(ctx, 0, answerkey.OptionA))
	assert.False(t, store.Set(ctx, -2, answerkey.OptionA))
	assert.False(t, store.Set(ctx, 1, answerkey.OptionTrue))
	assert.False(t, store.Set(ctx, 1, answerkey.Option("Z")))
	assert.Equal(t, 0, store.Count())
}

func TestAnswerStore_LoadTreatsCorruptRecordAsEmpty(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	c.Put(AnswerStateKey("test-1"), []byte(`{not json`), 0)

	store := newTestStore(t, c)
	assert.Empty(t, store.Load(ctx))

	_, ok := c.Raw(AnswerStateKey("test-1"))
	assert.False(t, ok, "corrupt record should be discarded")
}

func TestAnswerStore_LoadDropsInvalidEntries(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	c.Put(AnswerStateKey("test-1"), []byte(`{"0":"A","2":"B","4":""}`), 0)

	store := newTestStore(t, c)
	assert.Equal(t, models.AnswerState{2: answerkey.OptionB}, store.Load(ctx))
}

func TestAnswerStore_ReconcileDropsUnavailableOptions(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()

	store := newTestStore(t, c)
	store.Load(ctx)
	store.Reconcile(ctx, answerkey.OptionSet{"A", "B", "C", "D", "E", "V"})
	require.True(t, store.Set(ctx, 1, answerkey.OptionA))
	require.True(t, store.Set(ctx, 2, answerkey.OptionTrue))
	require.True(t, store.Set(ctx, 3, answerkey.OptionE))

	removed := store.Reconcile(ctx, answerkey.OptionSet{"A", "B", "C", "D", "E"})
	assert.Equal(t, []int{2}, removed)
	assert.Equal(t, models.AnswerState{1: "A", 3: "E"}, store.Snapshot())

	reloaded := newTestStore(t, c)
	assert.Equal(t, models.AnswerState{1: "A", 3: "E"}, reloaded.Load(ctx))
}

func TestAnswerStore_ClearAndReset(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()

	store := newTestStore(t, c)
	store.Load(ctx)
	require.True(t, store.Set(ctx, 1, answerkey.OptionB))

	store.Reset()
	assert.Equal(t, 0, store.Count())
	_, ok := c.Raw(AnswerStateKey("test-1"))
	assert.True(t, ok, "reset keeps the saved record")

	require.NoError(t, store.Clear(ctx))
	_, ok = c.Raw(AnswerStateKey("test-1"))
	assert.False(t, ok)
}

func TestAnswerStore_SnapshotIsIndependent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, cache.NewMemoryCache())
	store.Load(ctx)
	require.True(t, store.Set(ctx, 1, answerkey.OptionA))

	snapshot := store.Snapshot()
	snapshot[2] = answerkey.OptionB
	assert.Equal(t, 1, store.Count())
}
