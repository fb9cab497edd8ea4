package diamond

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rsperko/diamond/internal/git"
	"github.com/rsperko/diamond/internal/log"
)

// ErrFrozen indicates that a mutation was attempted against a branch
// that has been frozen.
var ErrFrozen = errors.New("branch is frozen")

// ErrOperationInProgress indicates that a command cannot run because
// a previous operation is suspended on a conflict.
var ErrOperationInProgress = errors.New("an operation is already in progress, run continue or abort first")

// Service wires together the Git gateway, the metadata store, and the
// operation state/log stores to implement the stack's mutation
// commands.
type Service struct {
	repo    *git.Repository
	store   *Store
	opstate *OpStateStore
	oplog   *OpLog
	log     *log.Logger
}

// NewService builds a Service operating on the given repository and
// store.
func NewService(repo *git.Repository, store *Store, logger *log.Logger) *Service {
	return &Service{
		repo:    repo,
		store:   store,
		opstate: NewOpStateStore(repo.GitDir()),
		oplog:   NewOpLog(repo.GitDir()),
		log:     logger,
	}
}

// guardClean requires that the working tree have no uncommitted
// changes, per the engine's clean-working-tree precondition for
// history-rewriting commands.
func (s *Service) guardClean(ctx context.Context) error {
	clean, err := s.repo.IsClean(ctx)
	if err != nil {
		return fmt.Errorf("check working tree: %w", err)
	}
	if !clean {
		return errors.New("working tree has uncommitted changes")
	}
	return nil
}

// guardNoOperation requires that no operation is currently suspended.
func (s *Service) guardNoOperation() error {
	_, err := s.opstate.Load()
	if err == nil {
		return ErrOperationInProgress
	}
	if !errors.Is(err, ErrNoOperation) {
		return err
	}
	return nil
}

func (s *Service) guardNotFrozen(ctx context.Context, branch string) error {
	frozen, err := s.store.IsFrozen(ctx, branch)
	if err != nil {
		return fmt.Errorf("check frozen state: %w", err)
	}
	if frozen {
		return fmt.Errorf("%s: %w", branch, ErrFrozen)
	}
	return nil
}

func (s *Service) record(command string, branches []string, description string) error {
	return s.recordOutcome(command, branches, description, OutcomeSuccess, nil)
}

func (s *Service) recordOutcome(command string, branches []string, description string, outcome OpOutcome, backups []BackupRecord) error {
	return s.oplog.Append(OpLogEntry{
		Time:        time.Now(),
		Command:     command,
		Branches:    branches,
		Description: description,
		Outcome:     outcome,
		Backups:     backups,
	})
}

// toContinuations wraps a restack plan's remaining branches as
// Continuation steps of the given kind, for persisting to
// [OperationState].
func toContinuations(kind string, branches []string) []Continuation {
	if len(branches) == 0 {
		return nil
	}
	steps := make([]Continuation, len(branches))
	for i, b := range branches {
		steps[i] = Continuation{Branch: b, Kind: kind}
	}
	return steps
}

// InitializeRequest configures the first-time setup of the stack for
// a repository.
type InitializeRequest struct {
	// Trunk is the name of the trunk branch.
	// If empty, the repository's current branch is used.
	Trunk string

	// Remote is the name of the remote to push to.
	Remote string
}

// Initialize records the trunk branch for a repository that has not
// used the stack before.
func Initialize(ctx context.Context, repo *git.Repository, logger *log.Logger, req InitializeRequest) (*Service, error) {
	trunk := req.Trunk
	if trunk == "" {
		current, err := repo.CurrentBranch(ctx)
		if err != nil {
			return nil, fmt.Errorf("determine trunk: %w", err)
		}
		trunk = current
	}
	if !repo.BranchExists(ctx, trunk) {
		return nil, fmt.Errorf("trunk branch %q does not exist", trunk)
	}

	store, err := Init(ctx, repo, logger, InitRequest{Trunk: trunk, Remote: req.Remote})
	if err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	return NewService(repo, store, logger), nil
}

// Store returns the service's underlying metadata store.
func (s *Service) Store() *Store { return s.store }

// CreateRequest describes a new branch to add to the stack.
type CreateRequest struct {
	// Name of the new branch.
	Name string

	// Base is the branch to create it from and track it against.
	// Defaults to the current branch.
	Base string

	// Message, if set, is committed with all currently staged
	// changes as part of creating the branch.
	Message string
}

// Create makes a new branch on top of Base (or the current branch),
// tracks it in the stack, and optionally commits staged changes to
// it.
func (s *Service) Create(ctx context.Context, req CreateRequest) error {
	if req.Name == "" {
		return errors.New("branch name is required")
	}

	base := req.Base
	if base == "" {
		current, err := s.repo.CurrentBranch(ctx)
		if err != nil {
			return fmt.Errorf("determine base: %w", err)
		}
		base = current
	}

	baseHash, err := s.repo.PeelToCommit(ctx, base)
	if err != nil {
		return fmt.Errorf("resolve base %v: %w", base, err)
	}

	if err := s.repo.CreateBranch(ctx, git.CreateBranchRequest{Name: req.Name, Head: base}); err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	if err := s.repo.Checkout(ctx, req.Name); err != nil {
		return fmt.Errorf("checkout %v: %w", req.Name, err)
	}

	if req.Message != "" {
		if err := s.repo.Commit(ctx, git.CommitRequest{Message: req.Message}); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}

	if err := s.store.UpsertBranch(ctx, UpsertRequest{
		Name:     req.Name,
		Base:     base,
		BaseHash: baseHash,
		Message:  fmt.Sprintf("create %s on %s", req.Name, base),
	}); err != nil {
		return fmt.Errorf("track branch: %w", err)
	}

	return s.record("branch create", []string{req.Name}, fmt.Sprintf("created %s on %s", req.Name, base))
}

// Track starts tracking an existing Git branch as part of the stack.
func (s *Service) Track(ctx context.Context, branch, base string) error {
	if !s.repo.BranchExists(ctx, branch) {
		return fmt.Errorf("branch %q does not exist", branch)
	}
	if base == "" {
		return errors.New("base branch is required")
	}

	baseHash, err := s.repo.PeelToCommit(ctx, base)
	if err != nil {
		return fmt.Errorf("resolve base %v: %w", base, err)
	}

	if err := s.store.UpsertBranch(ctx, UpsertRequest{
		Name:     branch,
		Base:     base,
		BaseHash: baseHash,
		Message:  fmt.Sprintf("track %s on %s", branch, base),
	}); err != nil {
		return fmt.Errorf("track branch: %w", err)
	}

	return s.record("branch track", []string{branch}, fmt.Sprintf("tracked %s on %s", branch, base))
}

// Untrack stops tracking branch, without deleting it from Git.
// Branches directly above it are re-parented onto its former base, so
// they are not orphaned.
func (s *Service) Untrack(ctx context.Context, branch string) error {
	b, err := s.store.LookupBranch(ctx, branch)
	if err != nil {
		return err
	}

	graph, err := LoadGraph(ctx, s.store)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}

	for _, child := range graph.Children(branch) {
		if err := s.store.UpsertBranch(ctx, UpsertRequest{
			Name:    child,
			Base:    b.Base,
			Message: fmt.Sprintf("%s: re-parented after untracking %s", child, branch),
		}); err != nil {
			return fmt.Errorf("reparent %v: %w", child, err)
		}
	}

	if err := s.store.ForgetBranch(ctx, branch); err != nil {
		return fmt.Errorf("untrack %v: %w", branch, err)
	}

	return s.record("branch untrack", []string{branch}, fmt.Sprintf("untracked %s", branch))
}

// Rename renames a tracked branch and updates every branch that
// records it as a base.
func (s *Service) Rename(ctx context.Context, oldName, newName string) error {
	if err := s.guardNotFrozen(ctx, oldName); err != nil {
		return err
	}

	b, err := s.store.LookupBranch(ctx, oldName)
	if err != nil {
		return err
	}

	graph, err := LoadGraph(ctx, s.store)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	children := graph.Children(oldName)

	if err := s.repo.RenameBranch(ctx, git.RenameBranchRequest{OldName: oldName, NewName: newName}); err != nil {
		return fmt.Errorf("rename branch: %w", err)
	}

	if err := s.store.UpsertBranch(ctx, UpsertRequest{
		Name:     newName,
		Base:     b.Base,
		BaseHash: b.BaseHash,
		Message:  fmt.Sprintf("rename %s to %s", oldName, newName),
	}); err != nil {
		return fmt.Errorf("track renamed branch: %w", err)
	}

	for _, child := range children {
		if err := s.store.UpsertBranch(ctx, UpsertRequest{
			Name:    child,
			Base:    newName,
			Message: fmt.Sprintf("%s: base renamed from %s to %s", child, oldName, newName),
		}); err != nil {
			return fmt.Errorf("update base of %v: %w", child, err)
		}
	}

	if err := s.store.ForgetBranch(ctx, oldName); err != nil {
		return fmt.Errorf("forget old name: %w", err)
	}

	return s.record("branch rename", []string{oldName, newName}, fmt.Sprintf("renamed %s to %s", oldName, newName))
}

// DeleteRequest configures deletion of a tracked branch.
type DeleteRequest struct {
	// Name of the branch to delete.
	Name string

	// Force deletes the branch even if it has unmerged changes.
	Force bool
}

// Delete removes a branch from the stack and from Git, re-parenting
// any branches directly above it onto its former base.
func (s *Service) Delete(ctx context.Context, req DeleteRequest) error {
	if err := s.guardNotFrozen(ctx, req.Name); err != nil {
		return err
	}

	if err := Backup(ctx, s.repo, req.Name, time.Now()); err != nil {
		s.log.Warnf("failed to back up %s before delete: %v", req.Name, err)
	}

	if err := s.Untrack(ctx, req.Name); err != nil {
		return fmt.Errorf("untrack before delete: %w", err)
	}

	if err := s.repo.DeleteBranch(ctx, req.Name, git.BranchDeleteOptions{Force: req.Force}); err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}

	return s.record("branch delete", []string{req.Name}, fmt.Sprintf("deleted %s", req.Name))
}

// Freeze marks a branch as frozen against future mutation.
func (s *Service) Freeze(ctx context.Context, branch string) error {
	if _, err := s.store.LookupBranch(ctx, branch); err != nil {
		return err
	}
	if err := s.store.Freeze(ctx, branch); err != nil {
		return err
	}
	return s.record("branch freeze", []string{branch}, fmt.Sprintf("froze %s", branch))
}

// Unfreeze removes the frozen marker from a branch.
func (s *Service) Unfreeze(ctx context.Context, branch string) error {
	if err := s.store.Unfreeze(ctx, branch); err != nil {
		return err
	}
	return s.record("branch unfreeze", []string{branch}, fmt.Sprintf("unfroze %s", branch))
}

// MoveRequest describes retargeting a branch onto a different base.
type MoveRequest struct {
	// Branch to move.
	Branch string

	// Onto is the new base branch.
	Onto string
}

// Move retargets a branch onto a new base and restacks the branch and
// everything above it there immediately, so the whole upstack reflects
// the new parent right away.
func (s *Service) Move(ctx context.Context, req MoveRequest) (*Report, error) {
	if err := s.guardNoOperation(); err != nil {
		return nil, err
	}
	if err := s.guardNotFrozen(ctx, req.Branch); err != nil {
		return nil, err
	}
	if err := s.guardClean(ctx); err != nil {
		return nil, err
	}

	if _, err := s.repo.PeelToCommit(ctx, req.Onto); err != nil {
		return nil, fmt.Errorf("resolve %v: %w", req.Onto, err)
	}

	if err := s.store.UpsertBranch(ctx, UpsertRequest{
		Name:    req.Branch,
		Base:    req.Onto,
		Message: fmt.Sprintf("move %s onto %s", req.Branch, req.Onto),
	}); err != nil {
		return nil, fmt.Errorf("update base: %w", err)
	}

	graph, err := LoadGraph(ctx, s.store)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	plan := Plan(graph, req.Branch, false)

	report, err := Run(ctx, s.repo, s.store, plan)
	if err != nil {
		return nil, fmt.Errorf("restack %v: %w", req.Branch, err)
	}

	if report.Conflicted != "" {
		if err := s.opstate.Save(&OperationState{
			Kind:          "move",
			Branch:        report.Conflicted,
			Continuations: toContinuations("move", report.Remaining),
			Backups:       report.Backups,
			StartedAt:     time.Now(),
		}); err != nil {
			return nil, fmt.Errorf("save operation state: %w", err)
		}
		if err := s.recordOutcome("branch move", []string{req.Branch}, fmt.Sprintf("moving %s onto %s", req.Branch, req.Onto), OutcomeSuspended, report.Backups); err != nil {
			return nil, err
		}
		return report, nil
	}

	if err := s.recordOutcome("branch move", []string{req.Branch}, fmt.Sprintf("moved %s onto %s", req.Branch, req.Onto), OutcomeSuccess, report.Backups); err != nil {
		return nil, err
	}
	return report, nil
}

// SyncRequest configures a sync of the stack with its trunk.
type SyncRequest struct {
	// Branch is the currently checked-out branch, used only to
	// decide which sub-stack's conflicts must suspend the sync
	// rather than being skipped; see [Service.Sync].
	Branch string
}

// Sync fetches from the configured remote, fast-forwards trunk to
// match it, then restacks every tracked branch reachable from trunk:
// scope full always covers the whole forest, not just the sub-stack
// Branch sits in.
//
// A conflict while restacking a branch that is an ancestor of,
// equal to, or a descendant of Branch always suspends the sync for
// `continue`/`abort`. A conflict in any other branch is treated as
// skippable: the branch is reset back to the backup taken just
// before the attempt, a warning entry is recorded, and the sync moves
// on to the next branch in the plan. This keeps one stale sub-stack
// from blocking every other sub-stack's fetch-and-restack.
func (s *Service) Sync(ctx context.Context, req SyncRequest) (*Report, error) {
	if err := s.guardNoOperation(); err != nil {
		return nil, err
	}
	if err := s.guardClean(ctx); err != nil {
		return nil, err
	}

	graph, err := LoadGraph(ctx, s.store)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}

	if remote := s.store.Remote(); remote != "" {
		if err := s.repo.Fetch(ctx, git.FetchOptions{Remote: remote}); err != nil {
			return nil, fmt.Errorf("fetch %v: %w", remote, err)
		}
		if err := s.fastForwardTrunk(ctx, graph.Trunk(), remote); err != nil {
			return nil, fmt.Errorf("fast-forward %v: %w", graph.Trunk(), err)
		}
	}

	protected := map[string]bool{graph.Trunk(): true}
	if req.Branch != "" && graph.Contains(req.Branch) {
		for b := range graph.Stack(req.Branch) {
			protected[b] = true
		}
	}

	plan := Plan(graph, "", true)
	report := &Report{}

	for i, branch := range plan {
		frozen, err := s.store.IsFrozen(ctx, branch)
		if err != nil {
			return nil, fmt.Errorf("check frozen state of %v: %w", branch, err)
		}
		if frozen {
			continue
		}

		at := time.Now()
		if err := Backup(ctx, s.repo, branch, at); err != nil {
			return nil, fmt.Errorf("back up %v: %w", branch, err)
		}
		ref := BackupRef(branch, at)
		report.Backups = append(report.Backups, BackupRecord{Branch: branch, Ref: ref})

		outcome, err := Restack(ctx, s.repo, s.store, branch)
		if err != nil {
			return nil, fmt.Errorf("restack %v: %w", branch, err)
		}

		if outcome.Result != RestackConflicted {
			report.Outcomes = append(report.Outcomes, *outcome)
			continue
		}

		if protected[branch] {
			report.Conflicted = branch
			report.Remaining = append([]string{}, plan[i+1:]...)
			if err := s.opstate.Save(&OperationState{
				Kind:          "sync",
				Branch:        branch,
				Continuations: toContinuations("sync", report.Remaining),
				Backups:       report.Backups,
				StartedAt:     time.Now(),
			}); err != nil {
				return nil, fmt.Errorf("save operation state: %w", err)
			}
			if err := s.recordOutcome("sync", []string{branch}, fmt.Sprintf("sync paused on %s", branch), OutcomeSuspended, report.Backups); err != nil {
				return nil, err
			}
			return report, nil
		}

		// Unrelated sub-stack: reset it from the backup just taken
		// and keep syncing the rest of the forest.
		if err := AbortRestack(ctx, s.repo); err != nil {
			return nil, fmt.Errorf("abort rebase of %v: %w", branch, err)
		}
		hash, err := s.repo.PeelToCommit(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("resolve backup of %v: %w", branch, err)
		}
		if err := s.repo.SetRef(ctx, git.SetRefRequest{
			Ref:    "refs/heads/" + branch,
			Hash:   hash,
			Reason: fmt.Sprintf("sync: skip %s, reset from backup", branch),
		}); err != nil {
			return nil, fmt.Errorf("reset %v from backup: %w", branch, err)
		}
		s.log.Warnf("%s: conflict while syncing, outside the current stack; skipped and reset from backup", branch)
		if err := s.record("sync", []string{branch}, fmt.Sprintf("skipped %s: conflict outside current stack", branch)); err != nil {
			return nil, err
		}
	}

	branches := make([]string, len(report.Outcomes))
	for i, o := range report.Outcomes {
		branches[i] = o.Branch
	}
	if err := s.recordOutcome("sync", branches, "synced stack from trunk", OutcomeSuccess, report.Backups); err != nil {
		return nil, err
	}
	return report, nil
}

// fastForwardTrunk advances the local trunk branch to match the
// remote-tracking ref fetched from remote, but only when that ref is
// a strict descendant of the current trunk, so a sync never rewrites
// trunk's history.
func (s *Service) fastForwardTrunk(ctx context.Context, trunk, remote string) error {
	remoteRef := fmt.Sprintf("refs/remotes/%s/%s", remote, trunk)
	remoteHash, err := s.repo.PeelToCommit(ctx, remoteRef)
	if err != nil {
		// No remote-tracking ref for trunk; nothing to fast-forward.
		return nil
	}
	localHash, err := s.repo.PeelToCommit(ctx, trunk)
	if err != nil {
		return fmt.Errorf("resolve %v: %w", trunk, err)
	}
	if localHash == remoteHash || !s.repo.IsAncestor(ctx, localHash, remoteHash) {
		return nil
	}
	return s.repo.SetRef(ctx, git.SetRefRequest{
		Ref:     "refs/heads/" + trunk,
		Hash:    remoteHash,
		OldHash: localHash,
		Reason:  "sync: fast-forward trunk",
	})
}

// Continue resumes whatever operation is currently suspended on a
// conflict: it finishes the branch the conflict paused on, then works
// through the rest of the operation's plan, saving an updated
// [OperationState] and returning early if a later branch conflicts in
// turn.
func (s *Service) Continue(ctx context.Context) (*Report, error) {
	state, err := s.opstate.Load()
	if err != nil {
		return nil, err
	}

	outcome, err := ContinueRestack(ctx, s.repo, s.store, state.Branch)
	if err != nil {
		return nil, fmt.Errorf("continue %v: %w", state.Kind, err)
	}

	report := &Report{Outcomes: []RestackOutcome{*outcome}, Backups: state.Backups}

	if outcome.Result == RestackConflicted {
		return report, nil
	}

	remaining := make([]string, len(state.Continuations))
	for i, c := range state.Continuations {
		remaining[i] = c.Branch
	}

	rest, err := Run(ctx, s.repo, s.store, remaining)
	if err != nil {
		return nil, fmt.Errorf("continue %v: restack remaining branches: %w", state.Kind, err)
	}
	report.Outcomes = append(report.Outcomes, rest.Outcomes...)
	report.Backups = append(report.Backups, rest.Backups...)

	branches := make([]string, len(report.Outcomes))
	for i, o := range report.Outcomes {
		branches[i] = o.Branch
	}

	if rest.Conflicted != "" {
		report.Conflicted = rest.Conflicted
		report.Remaining = rest.Remaining
		if err := s.opstate.Save(&OperationState{
			Kind:          state.Kind,
			Branch:        rest.Conflicted,
			Continuations: toContinuations(state.Kind, rest.Remaining),
			Backups:       report.Backups,
			StartedAt:     state.StartedAt,
		}); err != nil {
			return nil, fmt.Errorf("save operation state: %w", err)
		}
		if err := s.recordOutcome(state.Kind, branches, fmt.Sprintf("%s paused on %s", state.Kind, rest.Conflicted), OutcomeSuspended, report.Backups); err != nil {
			return nil, err
		}
		return report, nil
	}

	if err := s.opstate.Clear(); err != nil {
		return nil, fmt.Errorf("clear operation state: %w", err)
	}
	if err := s.recordOutcome(state.Kind, branches, fmt.Sprintf("resumed %s", state.Kind), OutcomeSuccess, report.Backups); err != nil {
		return nil, err
	}
	return report, nil
}

// Abort cancels whatever operation is currently suspended on a
// conflict: the in-progress rebase is aborted, and every branch the
// operation had touched (the one it paused on, and every branch
// restacked before it) is reset to the backup ref recorded for it,
// restoring the stack to the state it was in before the operation
// began.
func (s *Service) Abort(ctx context.Context) error {
	state, err := s.opstate.Load()
	if err != nil {
		return err
	}

	if err := AbortRestack(ctx, s.repo); err != nil {
		return fmt.Errorf("abort rebase: %w", err)
	}

	branches := make([]string, 0, len(state.Backups))
	for _, b := range state.Backups {
		hash, err := s.repo.PeelToCommit(ctx, b.Ref)
		if err != nil {
			s.log.Warnf("%s: backup %s not found, leaving as-is: %v", b.Branch, b.Ref, err)
			continue
		}
		if err := s.repo.SetRef(ctx, git.SetRefRequest{
			Ref:    "refs/heads/" + b.Branch,
			Hash:   hash,
			Reason: fmt.Sprintf("abort %s: restore from backup", state.Kind),
		}); err != nil {
			return fmt.Errorf("restore %v from backup: %w", b.Branch, err)
		}
		branches = append(branches, b.Branch)
	}

	if err := s.opstate.Clear(); err != nil {
		return fmt.Errorf("clear operation state: %w", err)
	}

	return s.recordOutcome(state.Kind, branches, fmt.Sprintf("aborted %s", state.Kind), OutcomeAborted, state.Backups)
}

// Gc prunes backup refs per opts, keeping `undo` usable without the
// backup namespace growing without bound. It does not touch the
// operation log or any other ref namespace. Backups belonging to a
// currently suspended operation are never deleted, since abort still
// needs them.
func (s *Service) Gc(ctx context.Context, opts GcOptions) (*GcReport, error) {
	if state, err := s.opstate.Load(); err == nil {
		for _, b := range state.Backups {
			opts.Protect = append(opts.Protect, b.Ref)
		}
	}

	report, err := Gc(ctx, s.repo, time.Now(), opts)
	if err != nil {
		return nil, fmt.Errorf("gc: %w", err)
	}
	return report, nil
}
