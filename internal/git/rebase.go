package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// RebaseRequest configures a rebase operation.
//
// The three-commit form is used: Upstream and Onto are both set,
// so the rebase replays only the commits reachable from Branch
// but not from Upstream, onto Onto.
// This is equivalent to:
//
//	git rebase --onto <Onto> <Upstream> <Branch>
type RebaseRequest struct {
	// Branch is the branch to rebase.
	// If empty, the current branch is used.
	Branch string

	// Upstream is the commit at which the replayed commits
	// currently begin. Commits reachable from Upstream are
	// excluded from the rebase.
	Upstream string

	// Onto is the commit the replayed commits are rebased onto.
	// If empty, Upstream is used, matching plain 'git rebase'.
	Onto string

	// Autostash stashes and restores uncommitted changes
	// around the rebase.
	Autostash bool

	// Quiet suppresses non-error output from the rebase.
	Quiet bool
}

// RebaseInterruptError indicates that a rebase stopped partway through,
// usually because of a conflict, and is waiting for the caller to
// resolve the issue and call [Repository.RebaseContinue] or
// [Repository.RebaseAbort].
type RebaseInterruptError struct {
	// Kind describes why the rebase was interrupted.
	Kind RebaseInterruptKind
}

func (e *RebaseInterruptError) Error() string {
	switch e.Kind {
	case RebaseInterruptConflict:
		return "rebase interrupted by a conflict"
	default:
		return "rebase interrupted"
	}
}

// RebaseInterruptKind enumerates reasons a rebase may pause.
type RebaseInterruptKind int

const (
	// RebaseInterruptConflict means a conflict was detected
	// while replaying a commit.
	RebaseInterruptConflict RebaseInterruptKind = iota
)

// Rebase replays the commits described by req.
//
// If the rebase stops because of a conflict, it returns
// [RebaseInterruptError]. Any other non-nil error indicates a
// rebase that failed to start or that failed for a reason other
// than a conflict.
func (r *Repository) Rebase(ctx context.Context, req RebaseRequest) error {
	args := []string{"rebase"}
	if req.Quiet {
		args = append(args, "--quiet")
	}
	if req.Autostash {
		args = append(args, "--autostash")
	}
	if req.Onto != "" {
		args = append(args, "--onto", req.Onto)
	}
	if req.Upstream != "" {
		args = append(args, req.Upstream)
	}
	if req.Branch != "" {
		args = append(args, req.Branch)
	}

	err := r.gitCmd(ctx, args...).Run(r.exec)
	if err == nil {
		return nil
	}

	if r.rebaseInProgress() {
		return &RebaseInterruptError{Kind: RebaseInterruptConflict}
	}
	return fmt.Errorf("rebase: %w", err)
}

// RebaseContinue resumes a rebase after conflicts have been
// resolved and staged.
//
// It returns [RebaseInterruptError] if another conflict is hit
// further along the rebase.
func (r *Repository) RebaseContinue(ctx context.Context) error {
	if !r.rebaseInProgress() {
		return errors.New("no rebase in progress")
	}

	err := r.gitCmd(ctx, "rebase", "--continue").
		AppendEnv("GIT_EDITOR=true").
		Run(r.exec)
	if err == nil {
		return nil
	}

	if r.rebaseInProgress() {
		return &RebaseInterruptError{Kind: RebaseInterruptConflict}
	}
	return fmt.Errorf("rebase --continue: %w", err)
}

// RebaseAbort cancels an in-progress rebase, restoring the branch
// and working tree to their state before the rebase began.
func (r *Repository) RebaseAbort(ctx context.Context) error {
	if !r.rebaseInProgress() {
		return nil
	}
	if err := r.gitCmd(ctx, "rebase", "--abort").Run(r.exec); err != nil {
		return fmt.Errorf("rebase --abort: %w", err)
	}
	return nil
}

// RebaseState reports whether a rebase is currently in progress
// in this repository's working tree.
func (r *Repository) RebaseState() bool {
	return r.rebaseInProgress()
}

// rebaseInProgress checks for the on-disk marker directories
// Git creates for the two rebase backends.
func (r *Repository) rebaseInProgress() bool {
	for _, name := range []string{"rebase-merge", "rebase-apply"} {
		if info, err := os.Stat(filepath.Join(r.gitDir, name)); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}
