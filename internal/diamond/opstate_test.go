package diamond_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsperko/diamond/internal/diamond"
)

func TestOpStateStore_LoadWithNoOperation(t *testing.T) {
	t.Parallel()

	store := diamond.NewOpStateStore(t.TempDir())

	_, err := store.Load()
	assert.ErrorIs(t, err, diamond.ErrNoOperation)
}

func TestOpStateStore_SaveLoadClear(t *testing.T) {
	t.Parallel()

	store := diamond.NewOpStateStore(t.TempDir())

	want := &diamond.OperationState{
		Kind:      "sync",
		Branch:    "feature1",
		StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Continuations: []diamond.Continuation{
			{Branch: "feature2", Kind: "restack"},
		},
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want.Kind, got.Kind)
	assert.Equal(t, want.Branch, got.Branch)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, want.Continuations, got.Continuations)

	require.NoError(t, store.Clear())
	_, err = store.Load()
	assert.ErrorIs(t, err, diamond.ErrNoOperation)
}

func TestOpStateStore_ClearWithoutOperationIsNotAnError(t *testing.T) {
	t.Parallel()

	store := diamond.NewOpStateStore(t.TempDir())
	assert.NoError(t, store.Clear())
}

func TestOpStateStore_SaveOverwritesPrevious(t *testing.T) {
	t.Parallel()

	store := diamond.NewOpStateStore(t.TempDir())

	require.NoError(t, store.Save(&diamond.OperationState{Kind: "sync", Branch: "a"}))
	require.NoError(t, store.Save(&diamond.OperationState{Kind: "modify", Branch: "b"}))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "modify", got.Kind)
	assert.Equal(t, "b", got.Branch)
}
