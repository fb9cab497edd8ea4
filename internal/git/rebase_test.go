package git_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsperko/diamond/internal/git"
	"github.com/rsperko/diamond/internal/git/gittest"
	"github.com/rsperko/diamond/internal/log/logtest"
	"github.com/rsperko/diamond/internal/text"
)

func TestRebase_cleanReplay(t *testing.T) {
	t.Parallel()

	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2024-05-21T20:30:40Z'
		git init
		git add foo.txt
		git commit -m 'Add foo'

		git checkout -b feature
		git add bar.txt
		git commit -m 'Add bar'

		git checkout main
		git add baz.txt
		git commit -m 'Add baz'

		git checkout feature

		-- foo.txt --
		foo

		-- bar.txt --
		bar

		-- baz.txt --
		baz
	`)))
	require.NoError(t, err)
	t.Cleanup(fixture.Cleanup)

	repo, err := git.Open(t.Context(), fixture.Dir(), git.OpenOptions{Log: logtest.New(t)})
	require.NoError(t, err)

	assert.False(t, repo.RebaseState(), "no rebase should be in progress yet")

	mainHash, err := repo.PeelToCommit(t.Context(), "main")
	require.NoError(t, err)

	err = repo.Rebase(t.Context(), git.RebaseRequest{
		Branch:   "feature",
		Upstream: "main",
		Onto:     mainHash.String(),
	})
	require.NoError(t, err)
	assert.False(t, repo.RebaseState())

	head, err := repo.PeelToCommit(t.Context(), "feature")
	require.NoError(t, err)
	assert.True(t, repo.IsAncestor(t.Context(), mainHash, head))
}

func TestRebase_conflictInterruptsAndAborts(t *testing.T) {
	t.Parallel()

	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2024-05-21T20:30:40Z'
		git init
		git add foo.txt
		git commit -m 'Add foo'

		git checkout -b feature
		git add bar.txt
		git commit -m 'Add bar'

		git checkout main
		mv conflicting-bar.txt bar.txt
		git add bar.txt
		git commit -m 'Conflicting bar'

		git checkout feature

		-- foo.txt --
		foo

		-- bar.txt --
		bar

		-- conflicting-bar.txt --
		different bar
	`)))
	require.NoError(t, err)
	t.Cleanup(fixture.Cleanup)

	repo, err := git.Open(t.Context(), fixture.Dir(), git.OpenOptions{Log: logtest.New(t)})
	require.NoError(t, err)

	err = repo.Rebase(t.Context(), git.RebaseRequest{
		Branch:   "feature",
		Upstream: "main",
	})
	require.Error(t, err)

	var interrupt *git.RebaseInterruptError
	require.True(t, errors.As(err, &interrupt))
	assert.Equal(t, git.RebaseInterruptConflict, interrupt.Kind)
	assert.True(t, repo.RebaseState())

	require.NoError(t, repo.RebaseAbort(t.Context()))
	assert.False(t, repo.RebaseState(), "abort clears the rebase markers")
}

func TestRebaseAbort_noopWithoutRebase(t *testing.T) {
	t.Parallel()

	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2024-05-21T20:30:40Z'
		git init
		git add foo.txt
		git commit -m 'Add foo'

		-- foo.txt --
		foo
	`)))
	require.NoError(t, err)
	t.Cleanup(fixture.Cleanup)

	repo, err := git.Open(t.Context(), fixture.Dir(), git.OpenOptions{Log: logtest.New(t)})
	require.NoError(t, err)

	assert.NoError(t, repo.RebaseAbort(t.Context()), "aborting with nothing in progress is a no-op")
}
