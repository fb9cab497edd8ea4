package diamond_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/git"
	"github.com/rsperko/diamond/internal/git/gittest"
	"github.com/rsperko/diamond/internal/log/logtest"
	"github.com/rsperko/diamond/internal/text"
)

func newTestRepo(t *testing.T) *git.Repository {
	t.Helper()

	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2026-01-01T00:00:00Z'
		git init
		git add init.txt
		git commit -m 'Initial commit'

		-- init.txt --
		root
	`)))
	require.NoError(t, err)
	t.Cleanup(fixture.Cleanup)

	repo, err := git.Open(t.Context(), fixture.Dir(), git.OpenOptions{
		Log: logtest.New(t),
	})
	require.NoError(t, err)
	return repo
}

func newTestService(t *testing.T) (*git.Repository, *diamond.Service) {
	t.Helper()

	repo := newTestRepo(t)
	svc, err := diamond.Initialize(t.Context(), repo, logtest.New(t), diamond.InitializeRequest{Trunk: "main"})
	require.NoError(t, err)
	return repo, svc
}

func TestService_Create(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo, svc := newTestService(t)

	require.NoError(t, svc.Create(ctx, diamond.CreateRequest{Name: "feature1"}))

	current, err := repo.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "feature1", current, "Create checks out the new branch")

	b, err := svc.Store().LookupBranch(ctx, "feature1")
	require.NoError(t, err)
	assert.Equal(t, "main", b.Base)
}

func TestService_CreateRequiresName(t *testing.T) {
	t.Parallel()

	_, svc := newTestService(t)
	err := svc.Create(t.Context(), diamond.CreateRequest{})
	assert.Error(t, err)
}

func TestService_Track(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo, svc := newTestService(t)

	require.NoError(t, repo.CreateBranch(ctx, git.CreateBranchRequest{Name: "manual", Head: "main"}))

	require.NoError(t, svc.Track(ctx, "manual", "main"))

	b, err := svc.Store().LookupBranch(ctx, "manual")
	require.NoError(t, err)
	assert.Equal(t, "main", b.Base)
}

func TestService_TrackRequiresExistingBranch(t *testing.T) {
	t.Parallel()

	_, svc := newTestService(t)
	err := svc.Track(t.Context(), "does-not-exist", "main")
	assert.Error(t, err)
}

func TestService_UntrackReparentsChildren(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	_, svc := newTestService(t)

	require.NoError(t, svc.Create(ctx, diamond.CreateRequest{Name: "a"}))
	require.NoError(t, svc.Create(ctx, diamond.CreateRequest{Name: "b", Base: "a"}))

	require.NoError(t, svc.Untrack(ctx, "a"))

	b, err := svc.Store().LookupBranch(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "main", b.Base, "b is re-parented onto a's former base")

	_, err = svc.Store().LookupBranch(ctx, "a")
	assert.ErrorIs(t, err, diamond.ErrNotExist)
}

func TestService_FreezeBlocksMutation(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	_, svc := newTestService(t)

	require.NoError(t, svc.Create(ctx, diamond.CreateRequest{Name: "a"}))
	require.NoError(t, svc.Freeze(ctx, "a"))

	err := svc.Rename(ctx, "a", "b")
	assert.Error(t, err, "a frozen branch must not be renamed")

	require.NoError(t, svc.Unfreeze(ctx, "a"))
	assert.NoError(t, svc.Rename(ctx, "a", "b"))
}
