package diamond

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rsperko/diamond/internal/cmputil"
	"github.com/rsperko/diamond/internal/git"
)

// ErrAlreadyRestacked indicates that a branch is already sitting on
// top of its base and needs no rebase.
var ErrAlreadyRestacked = errors.New("branch is already restacked")

// RestackGitRepository is the subset of [git.Repository] the restack
// engine needs.
type RestackGitRepository interface {
	PeelToCommit(ctx context.Context, ref string) (git.Hash, error)
	IsAncestor(ctx context.Context, a, b git.Hash) bool
	ForkPoint(ctx context.Context, a, b string) (git.Hash, error)
	Rebase(ctx context.Context, req git.RebaseRequest) error
	RebaseContinue(ctx context.Context) error
	RebaseAbort(ctx context.Context) error
	RebaseState() bool
	SetRef(ctx context.Context, req git.SetRefRequest) error
}

// BranchNeedsRestackError is returned when a branch's current head is
// not reachable from its base branch's current head, i.e. the branch
// was not built on top of the current state of its base.
type BranchNeedsRestackError struct {
	// Base is the name of the branch's base.
	Base string

	// BaseHash is the current hash of Base, not the one recorded in
	// the store.
	BaseHash git.Hash
}

func (e *BranchNeedsRestackError) Error() string {
	return fmt.Sprintf("branch needs to be restacked on top of %v", e.Base)
}

// VerifyRestacked reports whether a tracked branch sits on top of its
// base branch's current head.
//
// If the branch is up to date but the store's recorded base hash is
// stale (the base moved without the branch being rebased onto it,
// e.g. a fast-forward), the recorded hash is refreshed as a side
// effect.
//
// Returns [*BranchNeedsRestackError] if the branch needs a rebase.
func VerifyRestacked(ctx context.Context, repo RestackGitRepository, store *Store, branch string) error {
	b, err := store.LookupBranch(ctx, branch)
	if err != nil {
		return err
	}

	baseHash, err := repo.PeelToCommit(ctx, b.Base)
	if err != nil {
		return fmt.Errorf("resolve base %v: %w", b.Base, err)
	}

	head, err := repo.PeelToCommit(ctx, branch)
	if err != nil {
		return fmt.Errorf("resolve %v: %w", branch, err)
	}

	if !repo.IsAncestor(ctx, baseHash, head) {
		return &BranchNeedsRestackError{Base: b.Base, BaseHash: baseHash}
	}

	if b.BaseHash != baseHash {
		_ = store.UpsertBranch(ctx, UpsertRequest{
			Name:     branch,
			BaseHash: baseHash,
			Message:  fmt.Sprintf("%s: base moved externally", branch),
		})
	}
	return nil
}

// RestackResult describes the outcome of restacking a single branch.
type RestackResult int

const (
	// RestackCompleted means the branch was successfully rebased.
	RestackCompleted RestackResult = iota

	// RestackEmpty means the branch already sat on top of its base
	// and no rebase was necessary.
	RestackEmpty

	// RestackConflicted means the rebase stopped partway through
	// because of a conflict. The caller must resolve it and call
	// [ContinueRestack], or call [AbortRestack].
	RestackConflicted
)

// RestackOutcome is the result of restacking a single branch.
type RestackOutcome struct {
	Branch string
	Base   string
	Result RestackResult
}

// Restack rebases branch onto the current head of its recorded base,
// updating the store's recorded base hash on success.
//
// If the branch's recorded base hash is no longer an ancestor of the
// branch (the base's history was rewritten out from under it), the
// fork point between the branch and its base is used as the
// replay's lower bound instead, so history from before the rewrite
// is not replayed a second time.
func Restack(ctx context.Context, repo RestackGitRepository, store *Store, branch string) (*RestackOutcome, error) {
	b, err := store.LookupBranch(ctx, branch)
	if err != nil {
		return nil, err
	}

	err = VerifyRestacked(ctx, repo, store, branch)
	if err == nil {
		return &RestackOutcome{Branch: branch, Base: b.Base, Result: RestackEmpty}, nil
	}
	var needsRestack *BranchNeedsRestackError
	if !errors.As(err, &needsRestack) {
		return nil, fmt.Errorf("verify restacked: %w", err)
	}

	baseHash := needsRestack.BaseHash
	upstream := b.BaseHash.String()

	head, err := repo.PeelToCommit(ctx, branch)
	if err != nil {
		return nil, fmt.Errorf("resolve %v: %w", branch, err)
	}
	if cmputil.Zero(b.BaseHash) || !repo.IsAncestor(ctx, b.BaseHash, head) {
		if fp, err := repo.ForkPoint(ctx, b.Base, branch); err == nil {
			upstream = fp.String()
		}
	}

	rebaseErr := repo.Rebase(ctx, git.RebaseRequest{
		Branch:    branch,
		Upstream:  upstream,
		Onto:      baseHash.String(),
		Autostash: true,
		Quiet:     true,
	})
	if rebaseErr != nil {
		var interrupt *git.RebaseInterruptError
		if errors.As(rebaseErr, &interrupt) {
			return &RestackOutcome{Branch: branch, Base: b.Base, Result: RestackConflicted}, nil
		}
		return nil, fmt.Errorf("rebase %v: %w", branch, rebaseErr)
	}

	if err := store.UpsertBranch(ctx, UpsertRequest{
		Name:     branch,
		BaseHash: baseHash,
		Message:  fmt.Sprintf("%s: restacked on %s", branch, b.Base),
	}); err != nil {
		return nil, fmt.Errorf("update base hash of %v: %w", branch, err)
	}

	return &RestackOutcome{Branch: branch, Base: b.Base, Result: RestackCompleted}, nil
}

// ContinueRestack resumes a restack of branch after the conflict that
// paused it has been resolved and staged.
func ContinueRestack(ctx context.Context, repo RestackGitRepository, store *Store, branch string) (*RestackOutcome, error) {
	b, err := store.LookupBranch(ctx, branch)
	if err != nil {
		return nil, err
	}

	if err := repo.RebaseContinue(ctx); err != nil {
		var interrupt *git.RebaseInterruptError
		if errors.As(err, &interrupt) {
			return &RestackOutcome{Branch: branch, Base: b.Base, Result: RestackConflicted}, nil
		}
		return nil, fmt.Errorf("continue rebase: %w", err)
	}

	baseHash, err := repo.PeelToCommit(ctx, b.Base)
	if err != nil {
		return nil, fmt.Errorf("resolve base %v: %w", b.Base, err)
	}
	if err := store.UpsertBranch(ctx, UpsertRequest{
		Name:     branch,
		BaseHash: baseHash,
		Message:  fmt.Sprintf("%s: restacked on %s", branch, b.Base),
	}); err != nil {
		return nil, fmt.Errorf("update base hash of %v: %w", branch, err)
	}

	return &RestackOutcome{Branch: branch, Base: b.Base, Result: RestackCompleted}, nil
}

// AbortRestack cancels an in-progress restack rebase.
func AbortRestack(ctx context.Context, repo RestackGitRepository) error {
	return repo.RebaseAbort(ctx)
}

// Plan orders the branches a restack should visit, topologically
// sorted so a branch is always restacked after its base.
//
// If fullScope is false, root is required, and only root and the
// branches above it are included. If fullScope is true, root is
// ignored and the plan spans every tracked branch reachable from
// trunk: scope full (as used by `sync`) always means the whole stack
// of stacks, not just the one branch's own sub-stack, so that a
// sibling sub-stack several hops from where `sync` was invoked still
// gets restacked onto a trunk that has moved.
func Plan(graph *Graph, root string, fullScope bool) []string {
	var branches []string
	if fullScope {
		for _, top := range graph.Children(graph.Trunk()) {
			for b := range graph.Upstack(top) {
				branches = append(branches, b)
			}
		}
		return branches
	}
	for b := range graph.Upstack(root) {
		branches = append(branches, b)
	}
	return branches
}

// Report summarizes the result of restacking a sequence of branches.
type Report struct {
	Outcomes []RestackOutcome

	// Conflicted is the branch a restack stopped on, or "" if every
	// branch in the plan completed or was already up to date.
	Conflicted string

	// Remaining lists the branches, in order, that had not yet been
	// attempted when a conflict stopped the run.
	Remaining []string

	// Backups lists the backup ref taken for every branch actually
	// restacked during the run, in the order they were taken, so a
	// caller that suspends on Conflicted can restore all of them via
	// Abort, not just the branch the conflict stopped on.
	Backups []BackupRecord
}

// Run restacks every branch in plan, in order, stopping at the first
// conflict. Branches that are frozen are skipped entirely, since the
// engine never rewrites a frozen branch's history. Every branch that
// is actually restacked is backed up immediately beforehand, so the
// run can be unwound by resetting each one to its recorded backup.
func Run(ctx context.Context, repo RestackGitRepository, store *Store, plan []string) (*Report, error) {
	report := &Report{}

	for i, branch := range plan {
		frozen, err := store.IsFrozen(ctx, branch)
		if err != nil {
			return nil, fmt.Errorf("check frozen state of %v: %w", branch, err)
		}
		if frozen {
			continue
		}

		at := time.Now()
		if err := Backup(ctx, repo, branch, at); err != nil {
			return nil, fmt.Errorf("back up %v: %w", branch, err)
		}
		report.Backups = append(report.Backups, BackupRecord{Branch: branch, Ref: BackupRef(branch, at)})

		outcome, err := Restack(ctx, repo, store, branch)
		if err != nil {
			return nil, fmt.Errorf("restack %v: %w", branch, err)
		}
		report.Outcomes = append(report.Outcomes, *outcome)

		if outcome.Result == RestackConflicted {
			report.Conflicted = branch
			report.Remaining = append([]string{}, plan[i+1:]...)
			return report, nil
		}
	}

	return report, nil
}

// BackupRef returns the name of the backup ref that records branch's
// hash at a given moment in time, per the naming convention
// "refs/diamond/backup/<branch>/<timestamp>-<suffix>". The suffix is
// the nanosecond part of at: it disambiguates backups of the same
// branch taken within the same second, which happens when an operation
// retries quickly after a conflict, and it makes the name a function of
// branch and at alone, so callers of [Backup] can name the ref it wrote.
func BackupRef(branch string, at time.Time) string {
	return fmt.Sprintf("%sbackup/%s/%d-%09d", _refPrefix, branch, at.Unix(), at.Nanosecond())
}

// Backup records the current hash of branch under a backup ref before
// a mutation that may rewrite it, so the prior state can be recovered
// with `undo`.
func Backup(ctx context.Context, repo RestackGitRepository, branch string, at time.Time) error {
	hash, err := repo.PeelToCommit(ctx, branch)
	if err != nil {
		return fmt.Errorf("resolve %v: %w", branch, err)
	}
	if err := repo.SetRef(ctx, git.SetRefRequest{
		Ref:    BackupRef(branch, at),
		Hash:   hash,
		Reason: fmt.Sprintf("backup %s before mutation", branch),
	}); err != nil {
		return fmt.Errorf("set backup ref: %w", err)
	}
	return nil
}
