package diamond_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/log"
)

func TestStore_InitAndOpen(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	ctx := t.Context()

	_, err := diamond.Open(ctx, repo, log.Nop())
	assert.ErrorIs(t, err, diamond.ErrUninitialized)

	store, err := diamond.Init(ctx, repo, log.Nop(), diamond.InitRequest{Trunk: "main"})
	require.NoError(t, err)
	assert.Equal(t, "main", store.Trunk())
	assert.Equal(t, "origin", store.Remote(), "remote defaults to origin")

	reopened, err := diamond.Open(ctx, repo, log.Nop())
	require.NoError(t, err)
	assert.Equal(t, "main", reopened.Trunk())
}

func TestStore_InitRequiresTrunk(t *testing.T) {
	t.Parallel()

	_, err := diamond.Init(t.Context(), newFakeRepo(), log.Nop(), diamond.InitRequest{})
	assert.Error(t, err)
}

func TestStore_UpsertAndLookupBranch(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newFakeRepo()
	store, err := diamond.Init(ctx, repo, log.Nop(), diamond.InitRequest{Trunk: "main"})
	require.NoError(t, err)

	require.NoError(t, store.UpsertBranch(ctx, diamond.UpsertRequest{
		Name: "feature1", Base: "main", BaseHash: "abc123",
	}))

	b, err := store.LookupBranch(ctx, "feature1")
	require.NoError(t, err)
	assert.Equal(t, "feature1", b.Name)
	assert.Equal(t, "main", b.Base)
	assert.Equal(t, "abc123", b.BaseHash.String())

	_, err = store.LookupBranch(ctx, "main")
	assert.ErrorIs(t, err, diamond.ErrNotExist, "trunk is never tracked")

	_, err = store.LookupBranch(ctx, "does-not-exist")
	assert.ErrorIs(t, err, diamond.ErrNotExist)
}

func TestStore_UpsertRejectsCycle(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newFakeRepo()
	store, err := diamond.Init(ctx, repo, log.Nop(), diamond.InitRequest{Trunk: "main"})
	require.NoError(t, err)

	require.NoError(t, store.UpsertBranch(ctx, diamond.UpsertRequest{Name: "a", Base: "main"}))
	require.NoError(t, store.UpsertBranch(ctx, diamond.UpsertRequest{Name: "b", Base: "a"}))

	err = store.UpsertBranch(ctx, diamond.UpsertRequest{Name: "a", Base: "b"})
	assert.Error(t, err, "re-parenting a onto its own descendant must be rejected")
}

func TestStore_ForgetBranch(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newFakeRepo()
	store, err := diamond.Init(ctx, repo, log.Nop(), diamond.InitRequest{Trunk: "main"})
	require.NoError(t, err)

	require.NoError(t, store.UpsertBranch(ctx, diamond.UpsertRequest{Name: "a", Base: "main"}))
	require.NoError(t, store.UpsertBranch(ctx, diamond.UpsertRequest{Name: "b", Base: "a"}))

	err = store.ForgetBranch(ctx, "a")
	assert.Error(t, err, "a still has b as a child")

	require.NoError(t, store.ForgetBranch(ctx, "b"))
	require.NoError(t, store.ForgetBranch(ctx, "a"))

	names, err := store.ListBranches(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestStore_FreezeUnfreeze(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newFakeRepo()
	store, err := diamond.Init(ctx, repo, log.Nop(), diamond.InitRequest{Trunk: "main"})
	require.NoError(t, err)
	require.NoError(t, store.UpsertBranch(ctx, diamond.UpsertRequest{Name: "a", Base: "main"}))

	frozen, err := store.IsFrozen(ctx, "a")
	require.NoError(t, err)
	assert.False(t, frozen)

	require.NoError(t, store.Freeze(ctx, "a"))
	frozen, err = store.IsFrozen(ctx, "a")
	require.NoError(t, err)
	assert.True(t, frozen)

	require.NoError(t, store.Unfreeze(ctx, "a"))
	frozen, err = store.IsFrozen(ctx, "a")
	require.NoError(t, err)
	assert.False(t, frozen)
}
