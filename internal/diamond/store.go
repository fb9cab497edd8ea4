// Package diamond implements the stack metadata engine and restack
// orchestrator: it tracks which local branches form a stack, how they
// relate to one another, and how to bring them back in sync with their
// bases after the tree underneath them changes.
package diamond

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sort"
	"strings"

	"github.com/rsperko/diamond/internal/git"
	"github.com/rsperko/diamond/internal/log"
	"github.com/rsperko/diamond/internal/syncx"
)

const (
	_refPrefix       = "refs/diamond/"
	_trunkRef        = _refPrefix + "config/trunk"
	_remoteRef       = _refPrefix + "config/remote"
	_branchTmplRef   = _refPrefix + "config/branch-template"
	_parentRefPrefix = _refPrefix + "parent/"
	_frozenRefPrefix = _refPrefix + "frozen/"
)

// ErrNotExist indicates that a branch is not tracked by the store.
var ErrNotExist = errors.New("branch not tracked")

// ErrUninitialized indicates that the repository has not been
// initialized: no trunk branch has been recorded yet.
var ErrUninitialized = errors.New("store not initialized")

// GitRepository is the subset of [git.Repository] the store needs.
// It exists so the store can be tested against a fake.
type GitRepository interface {
	GetRef(ctx context.Context, ref string) (git.Hash, error)
	SetRef(ctx context.Context, req git.SetRefRequest) error
	DeleteRef(ctx context.Context, req git.DeleteRefRequest) error
	ForEachRef(ctx context.Context, prefix string) iter.Seq2[git.Ref, error]
	WriteObject(ctx context.Context, typ git.Type, src io.Reader) (git.Hash, error)
	ReadObject(ctx context.Context, typ git.Type, hash git.Hash, dst io.Writer) error
}

// Store provides access to the stack metadata recorded for a
// repository: the trunk branch, the parent of each tracked branch,
// and which branches are frozen against mutation.
//
// Each piece of metadata is recorded as its own ref so that an
// individual entry can travel with a push or fetch without needing
// to interpret the contents of a tree object.
type Store struct {
	repo  GitRepository
	log   *log.Logger
	trunk string

	remote syncx.SetOnce[string]
}

// InitRequest configures a new Store.
type InitRequest struct {
	// Trunk is the name of the trunk branch, e.g. "main".
	Trunk string

	// Remote is the name of the remote branches are pushed to.
	// Defaults to "origin".
	Remote string
}

// Init records the trunk branch for a repository that has not been
// initialized before, and returns a [Store] for it.
func Init(ctx context.Context, repo GitRepository, logger *log.Logger, req InitRequest) (*Store, error) {
	if req.Trunk == "" {
		return nil, errors.New("trunk branch name is required")
	}
	if req.Remote == "" {
		req.Remote = "origin"
	}

	hash, err := repo.WriteObject(ctx, git.BlobType, strings.NewReader(req.Trunk))
	if err != nil {
		return nil, fmt.Errorf("write trunk blob: %w", err)
	}
	if err := repo.SetRef(ctx, git.SetRefRequest{
		Ref:     _trunkRef,
		Hash:    hash,
		OldHash: git.ZeroHash,
		Reason:  "initialize stack store",
	}); err != nil {
		return nil, fmt.Errorf("set trunk ref: %w", err)
	}

	remoteHash, err := repo.WriteObject(ctx, git.BlobType, strings.NewReader(req.Remote))
	if err != nil {
		return nil, fmt.Errorf("write remote blob: %w", err)
	}
	if err := repo.SetRef(ctx, git.SetRefRequest{
		Ref:    _remoteRef,
		Hash:   remoteHash,
		Reason: "record default remote",
	}); err != nil {
		return nil, fmt.Errorf("set remote ref: %w", err)
	}

	s := &Store{repo: repo, log: logger, trunk: req.Trunk}
	s.remote.Set(req.Remote)
	return s, nil
}

// Open opens the Store for a repository that has already been
// initialized. It returns [ErrUninitialized] if no trunk branch has
// been recorded.
func Open(ctx context.Context, repo GitRepository, logger *log.Logger) (*Store, error) {
	trunk, err := readBlobRef(ctx, repo, _trunkRef)
	if err != nil {
		if errors.Is(err, git.ErrNotExist) {
			return nil, ErrUninitialized
		}
		return nil, fmt.Errorf("read trunk ref: %w", err)
	}

	s := &Store{repo: repo, log: logger, trunk: trunk}
	if remote, err := readBlobRef(ctx, repo, _remoteRef); err == nil {
		s.remote.Set(remote)
	}
	return s, nil
}

// Trunk returns the name of the trunk branch.
func (s *Store) Trunk() string {
	return s.trunk
}

// Remote returns the name of the remote branches are pushed to.
// It was fixed when the store was opened, defaulting to "origin" if
// none had ever been recorded.
func (s *Store) Remote() string {
	return s.remote.Get("origin")
}

func readBlobRef(ctx context.Context, repo GitRepository, ref string) (string, error) {
	hash, err := repo.GetRef(ctx, ref)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	if err := repo.ReadObject(ctx, git.BlobType, hash, &buf); err != nil {
		return "", fmt.Errorf("read blob: %w", err)
	}
	return buf.String(), nil
}

func parentRef(branch string) string {
	return _parentRefPrefix + branch
}

func frozenRef(branch string) string {
	return _frozenRefPrefix + branch
}

// BranchState is the recorded stack metadata for a single tracked branch.
type BranchState struct {
	// Name is the branch's name.
	Name string

	// Base is the name of the branch's parent in the stack.
	Base string

	// BaseHash is the hash of Base the last time this branch was
	// known to be restacked on top of it.
	BaseHash git.Hash
}

// LookupBranch returns the recorded state of a tracked branch.
// It returns [ErrNotExist] if the branch is not tracked.
func (s *Store) LookupBranch(ctx context.Context, name string) (*BranchState, error) {
	if name == s.trunk {
		return nil, fmt.Errorf("%q is the trunk branch: %w", name, ErrNotExist)
	}

	hash, err := s.repo.GetRef(ctx, parentRef(name))
	if err != nil {
		if errors.Is(err, git.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("get parent ref: %w", err)
	}

	var buf strings.Builder
	if err := s.repo.ReadObject(ctx, git.BlobType, hash, &buf); err != nil {
		return nil, fmt.Errorf("read parent blob: %w", err)
	}

	base, baseHash, ok := strings.Cut(buf.String(), "\x00")
	if !ok {
		return nil, fmt.Errorf("malformed parent record for %q", name)
	}

	return &BranchState{
		Name:     name,
		Base:     base,
		BaseHash: git.Hash(baseHash),
	}, nil
}

// UpsertRequest adds or updates the recorded state of a branch.
type UpsertRequest struct {
	// Name is the name of the branch.
	Name string

	// Base is the name of the new parent branch.
	// Leave empty to keep the current parent.
	Base string

	// BaseHash is the last known hash of Base.
	// Leave empty to keep the current value.
	BaseHash git.Hash

	// Message is recorded in the ref's reflog.
	// If empty, a message is generated.
	Message string
}

// UpsertBranch adds or updates the recorded state of a branch,
// rejecting changes that would introduce a cycle into the stack.
func (s *Store) UpsertBranch(ctx context.Context, req UpsertRequest) error {
	if req.Name == "" {
		return errors.New("branch name is required")
	}
	if req.Name == s.trunk {
		return fmt.Errorf("%q is the trunk branch and is not tracked", req.Name)
	}

	prev, err := s.LookupBranch(ctx, req.Name)
	if err != nil && !errors.Is(err, ErrNotExist) {
		return fmt.Errorf("lookup %q: %w", req.Name, err)
	}

	base := req.Base
	baseHash := req.BaseHash
	if prev != nil {
		if base == "" {
			base = prev.Base
		}
		if baseHash == "" {
			baseHash = prev.BaseHash
		}
	}
	if base == "" {
		return fmt.Errorf("branch %q must have a base", req.Name)
	}

	if base != s.trunk {
		if _, err := s.LookupBranch(ctx, base); err != nil {
			if errors.Is(err, ErrNotExist) {
				return fmt.Errorf("base branch %q is not tracked", base)
			}
			return fmt.Errorf("lookup base %q: %w", base, err)
		}
	}

	if cycle, err := s.findPath(ctx, base, req.Name); err != nil {
		return fmt.Errorf("check for cycle: %w", err)
	} else if len(cycle) > 0 {
		return fmt.Errorf("would create a cycle: %s -> %s", strings.Join(cycle, " -> "), req.Name)
	}

	record := base + "\x00" + baseHash.String()
	hash, err := s.repo.WriteObject(ctx, git.BlobType, strings.NewReader(record))
	if err != nil {
		return fmt.Errorf("write parent blob: %w", err)
	}

	if req.Message == "" {
		req.Message = fmt.Sprintf("track %s on %s", req.Name, base)
	}
	if err := s.repo.SetRef(ctx, git.SetRefRequest{
		Ref:    parentRef(req.Name),
		Hash:   hash,
		Reason: req.Message,
	}); err != nil {
		return fmt.Errorf("set parent ref: %w", err)
	}
	return nil
}

// findPath reports the chain of tracked branches from "from" up to
// "to", inclusive of both "from" and "to", or nil if trunk is reached
// first. A non-empty result means recording from->to as a base
// relationship would create a cycle.
func (s *Store) findPath(ctx context.Context, from, to string) ([]string, error) {
	var path []string
	seen := map[string]struct{}{}
	cur := from
	for cur != to {
		if cur == s.trunk {
			return nil, nil
		}
		if _, ok := seen[cur]; ok {
			return nil, fmt.Errorf("corrupt store: cycle already present at %q", cur)
		}
		seen[cur] = struct{}{}
		path = append(path, cur)

		b, err := s.LookupBranch(ctx, cur)
		if err != nil {
			if errors.Is(err, ErrNotExist) {
				return nil, nil
			}
			return nil, err
		}
		cur = b.Base
	}
	return append(path, to), nil
}

// ForgetBranch removes a branch from the store. It fails if any other
// tracked branch still records it as a base.
func (s *Store) ForgetBranch(ctx context.Context, name string) error {
	if name == s.trunk {
		return fmt.Errorf("%q is the trunk branch", name)
	}

	aboves, err := s.directUpstack(ctx, name)
	if err != nil {
		return fmt.Errorf("list branches above %v: %w", name, err)
	}
	if len(aboves) > 0 {
		return fmt.Errorf("branch %v is still the base of %v", name, strings.Join(aboves, ", "))
	}

	if err := s.repo.DeleteRef(ctx, git.DeleteRefRequest{Ref: parentRef(name)}); err != nil {
		return fmt.Errorf("delete parent ref: %w", err)
	}
	if err := s.repo.DeleteRef(ctx, git.DeleteRefRequest{Ref: frozenRef(name)}); err != nil {
		return fmt.Errorf("delete frozen ref: %w", err)
	}
	return nil
}

// directUpstack lists the tracked branches whose recorded base is
// exactly name.
func (s *Store) directUpstack(ctx context.Context, name string) ([]string, error) {
	var aboves []string
	for branch, err := range s.listBranches(ctx) {
		if err != nil {
			return nil, err
		}
		b, err := s.LookupBranch(ctx, branch)
		if err != nil {
			return nil, fmt.Errorf("lookup %q: %w", branch, err)
		}
		if b.Base == name {
			aboves = append(aboves, branch)
		}
	}
	return aboves, nil
}

// ListBranches returns the names of all tracked branches, sorted
// lexicographically. The trunk branch is never included.
func (s *Store) ListBranches(ctx context.Context) ([]string, error) {
	var names []string
	for name, err := range s.listBranches(ctx) {
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) listBranches(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for ref, err := range s.repo.ForEachRef(ctx, _parentRefPrefix) {
			if err != nil {
				yield("", fmt.Errorf("for-each-ref: %w", err))
				return
			}
			name := strings.TrimPrefix(ref.Name, _parentRefPrefix)
			if !yield(name, nil) {
				return
			}
		}
	}
}

// IsFrozen reports whether a branch has been frozen against mutation.
func (s *Store) IsFrozen(ctx context.Context, name string) (bool, error) {
	_, err := s.repo.GetRef(ctx, frozenRef(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, git.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("get frozen ref: %w", err)
}

// Freeze marks a branch as frozen: the restack engine and mutation
// commands will refuse to rewrite its history.
func (s *Store) Freeze(ctx context.Context, name string) error {
	hash, err := s.repo.WriteObject(ctx, git.BlobType, strings.NewReader(name))
	if err != nil {
		return fmt.Errorf("write frozen blob: %w", err)
	}
	if err := s.repo.SetRef(ctx, git.SetRefRequest{
		Ref:    frozenRef(name),
		Hash:   hash,
		Reason: fmt.Sprintf("freeze %s", name),
	}); err != nil {
		return fmt.Errorf("set frozen ref: %w", err)
	}
	return nil
}

// Unfreeze removes the frozen marker from a branch, if any.
func (s *Store) Unfreeze(ctx context.Context, name string) error {
	if err := s.repo.DeleteRef(ctx, git.DeleteRefRequest{Ref: frozenRef(name)}); err != nil {
		return fmt.Errorf("delete frozen ref: %w", err)
	}
	return nil
}
