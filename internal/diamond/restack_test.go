package diamond_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/git"
	"github.com/rsperko/diamond/internal/git/gittest"
	"github.com/rsperko/diamond/internal/log/logtest"
	"github.com/rsperko/diamond/internal/text"
)

func gitOpen(t *testing.T, dir string) (*git.Repository, error) {
	t.Helper()
	return git.Open(t.Context(), dir, git.OpenOptions{Log: logtest.New(t)})
}

func TestRestack_NeedsRestackAfterTrunkMoves(t *testing.T) {
	t.Parallel()

	ctx := t.Context()

	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2026-01-01T00:00:00Z'
		git init
		git add init.txt
		git commit -m 'Initial commit'

		at '2026-01-01T00:01:00Z'
		git checkout -b feature1
		git add feature1.txt
		git commit -m 'Add feature1'

		at '2026-01-01T00:02:00Z'
		git checkout main
		git add mainchange.txt
		git commit -m 'Update main'

		git checkout feature1

		-- init.txt --
		root

		-- feature1.txt --
		feature1

		-- mainchange.txt --
		change
	`)))
	require.NoError(t, err)
	t.Cleanup(fixture.Cleanup)

	repo, err := gitOpen(t, fixture.Dir())
	require.NoError(t, err)

	store, err := diamond.Init(ctx, repo, logtest.New(t), diamond.InitRequest{Trunk: "main"})
	require.NoError(t, err)
	require.NoError(t, store.UpsertBranch(ctx, diamond.UpsertRequest{Name: "feature1", Base: "main"}))

	err = diamond.VerifyRestacked(ctx, repo, store, "feature1")
	var needsRestack *diamond.BranchNeedsRestackError
	require.True(t, errors.As(err, &needsRestack), "feature1 should need a restack after main moved")

	outcome, err := diamond.Restack(ctx, repo, store, "feature1")
	require.NoError(t, err)
	assert.Equal(t, diamond.RestackCompleted, outcome.Result)

	assert.NoError(t, diamond.VerifyRestacked(ctx, repo, store, "feature1"), "feature1 should be up to date after restacking")
}

func TestRestack_AlreadyUpToDate(t *testing.T) {
	t.Parallel()

	ctx := t.Context()

	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2026-01-01T00:00:00Z'
		git init
		git add init.txt
		git commit -m 'Initial commit'

		at '2026-01-01T00:01:00Z'
		git checkout -b feature1
		git add feature1.txt
		git commit -m 'Add feature1'

		-- init.txt --
		root

		-- feature1.txt --
		feature1
	`)))
	require.NoError(t, err)
	t.Cleanup(fixture.Cleanup)

	repo, err := gitOpen(t, fixture.Dir())
	require.NoError(t, err)

	store, err := diamond.Init(ctx, repo, logtest.New(t), diamond.InitRequest{Trunk: "main"})
	require.NoError(t, err)
	require.NoError(t, store.UpsertBranch(ctx, diamond.UpsertRequest{Name: "feature1", Base: "main"}))

	outcome, err := diamond.Restack(ctx, repo, store, "feature1")
	require.NoError(t, err)
	assert.Equal(t, diamond.RestackEmpty, outcome.Result)
}

func TestPlan_FullScopeVsUpstack(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := newFakeRepo()
	store, err := diamond.Init(ctx, repo, logtest.New(t), diamond.InitRequest{Trunk: "main"})
	require.NoError(t, err)

	require.NoError(t, store.UpsertBranch(ctx, diamond.UpsertRequest{Name: "a", Base: "main"}))
	require.NoError(t, store.UpsertBranch(ctx, diamond.UpsertRequest{Name: "b", Base: "a"}))

	graph, err := diamond.LoadGraph(ctx, store)
	require.NoError(t, err)

	upstackOnly := diamond.Plan(graph, "a", false)
	assert.Equal(t, []string{"a", "b"}, upstackOnly)

	fullScope := diamond.Plan(graph, "b", true)
	assert.Equal(t, []string{"a", "b"}, fullScope, "full scope includes downstack even when rooted at the tip")
}

func TestRun_SkipsFrozenBranches(t *testing.T) {
	t.Parallel()

	ctx := t.Context()

	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2026-01-01T00:00:00Z'
		git init
		git add init.txt
		git commit -m 'Initial commit'

		at '2026-01-01T00:01:00Z'
		git checkout -b feature1
		git add feature1.txt
		git commit -m 'Add feature1'

		at '2026-01-01T00:02:00Z'
		git checkout main
		git add mainchange.txt
		git commit -m 'Update main'

		git checkout feature1

		-- init.txt --
		root

		-- feature1.txt --
		feature1

		-- mainchange.txt --
		change
	`)))
	require.NoError(t, err)
	t.Cleanup(fixture.Cleanup)

	repo, err := gitOpen(t, fixture.Dir())
	require.NoError(t, err)

	store, err := diamond.Init(ctx, repo, logtest.New(t), diamond.InitRequest{Trunk: "main"})
	require.NoError(t, err)
	require.NoError(t, store.UpsertBranch(ctx, diamond.UpsertRequest{Name: "feature1", Base: "main"}))
	require.NoError(t, store.Freeze(ctx, "feature1"))

	report, err := diamond.Run(ctx, repo, store, []string{"feature1"})
	require.NoError(t, err)
	assert.Empty(t, report.Outcomes, "a frozen branch is skipped entirely, not even reported as empty")
}
