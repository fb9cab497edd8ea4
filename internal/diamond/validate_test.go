package diamond_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/log"
)

// fakeBrancher reports every branch in the set as existing.
type fakeBrancher map[string]bool

func (f fakeBrancher) BranchExists(_ context.Context, branch string) bool {
	return f[branch]
}

func TestValidate_Clean(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newFakeRepo()
	store, err := diamond.Init(ctx, repo, log.Nop(), diamond.InitRequest{Trunk: "main"})
	require.NoError(t, err)
	require.NoError(t, store.UpsertBranch(ctx, diamond.UpsertRequest{Name: "a", Base: "main"}))

	brancher := fakeBrancher{"main": true, "a": true}
	findings, err := diamond.Validate(ctx, store, brancher)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestValidate_DetachedTrunk(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newFakeRepo()
	store, err := diamond.Init(ctx, repo, log.Nop(), diamond.InitRequest{Trunk: "main"})
	require.NoError(t, err)

	findings, err := diamond.Validate(ctx, store, fakeBrancher{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, diamond.FindingDetachedTrunk, findings[0].Kind)
}

func TestValidate_MissingGitBranch(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newFakeRepo()
	store, err := diamond.Init(ctx, repo, log.Nop(), diamond.InitRequest{Trunk: "main"})
	require.NoError(t, err)
	require.NoError(t, store.UpsertBranch(ctx, diamond.UpsertRequest{Name: "a", Base: "main"}))

	brancher := fakeBrancher{"main": true} // "a" is tracked but gone
	findings, err := diamond.Validate(ctx, store, brancher)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, diamond.FindingMissingGitBranch, findings[0].Kind)
	assert.True(t, findings[0].Fixable)
}

func TestRepair_ForgetsMissingBranch(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newFakeRepo()
	store, err := diamond.Init(ctx, repo, log.Nop(), diamond.InitRequest{Trunk: "main"})
	require.NoError(t, err)
	require.NoError(t, store.UpsertBranch(ctx, diamond.UpsertRequest{Name: "a", Base: "main"}))

	findings, err := diamond.Validate(ctx, store, fakeBrancher{"main": true})
	require.NoError(t, err)
	require.Len(t, findings, 1)

	remaining, err := diamond.Repair(ctx, store, findings)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	names, err := store.ListBranches(ctx)
	require.NoError(t, err)
	assert.NotContains(t, names, "a")
}

func TestRepair_LeavesCyclesUnfixed(t *testing.T) {
	t.Parallel()

	finding := diamond.Finding{Kind: diamond.FindingCycle, Branch: "a", Fixable: false}

	remaining, err := diamond.Repair(t.Context(), nil, []diamond.Finding{finding})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, diamond.FindingCycle, remaining[0].Kind)
}
