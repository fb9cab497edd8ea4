package diamond_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/git"
)

func backupRefName(branch string, at time.Time) string {
	return fmt.Sprintf("refs/diamond/backup/%s/%d-t", branch, at.Unix())
}

func TestGc_PrunesByAgeAndCount(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	ctx := t.Context()
	now := time.Unix(1_700_000_000, 0)

	// Branch "a" has three backups; keeping only the newest two must
	// remove the oldest regardless of its age.
	aOld := backupRefName("a", now.Add(-3*time.Hour))
	aMid := backupRefName("a", now.Add(-2*time.Hour))
	aNew := backupRefName("a", now.Add(-1*time.Hour))
	for _, ref := range []string{aOld, aMid, aNew} {
		require.NoError(t, repo.SetRef(ctx, git.SetRefRequest{Ref: ref, Hash: "deadbeef"}))
	}

	// Branch "b" has a single backup old enough to be pruned by age alone.
	bStale := backupRefName("b", now.Add(-1000*time.Hour))
	require.NoError(t, repo.SetRef(ctx, git.SetRefRequest{Ref: bStale, Hash: "deadbeef"}))

	report, err := diamond.Gc(ctx, repo, now, diamond.GcOptions{
		MaxAge:       500 * time.Hour,
		MaxPerBranch: 2,
	})
	require.NoError(t, err)

	var deleted []string
	for _, b := range report.Deleted {
		deleted = append(deleted, b.Ref)
	}
	assert.ElementsMatch(t, []string{aOld, bStale}, deleted)

	_, err = repo.GetRef(ctx, aOld)
	assert.ErrorIs(t, err, git.ErrNotExist)
	_, err = repo.GetRef(ctx, bStale)
	assert.ErrorIs(t, err, git.ErrNotExist)

	for _, ref := range []string{aMid, aNew} {
		_, err := repo.GetRef(ctx, ref)
		assert.NoError(t, err, "%s should survive", ref)
	}
}

func TestGc_NeverDeletesProtectedRefs(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	ctx := t.Context()
	now := time.Unix(1_700_000_000, 0)

	stale := backupRefName("a", now.Add(-1000*time.Hour))
	require.NoError(t, repo.SetRef(ctx, git.SetRefRequest{Ref: stale, Hash: "deadbeef"}))

	report, err := diamond.Gc(ctx, repo, now, diamond.GcOptions{
		MaxAge:  time.Hour,
		Protect: []string{stale},
	})
	require.NoError(t, err)
	assert.Empty(t, report.Deleted)

	_, err = repo.GetRef(ctx, stale)
	assert.NoError(t, err)
}

func TestGc_IgnoresNonBackupRefs(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	ctx := t.Context()

	require.NoError(t, repo.SetRef(ctx, git.SetRefRequest{Ref: "refs/diamond/parent/a", Hash: "deadbeef"}))

	report, err := diamond.Gc(ctx, repo, time.Now(), diamond.GcOptions{MaxAge: time.Nanosecond})
	require.NoError(t, err)
	assert.Empty(t, report.Deleted)

	_, err = repo.GetRef(ctx, "refs/diamond/parent/a")
	assert.NoError(t, err)
}
