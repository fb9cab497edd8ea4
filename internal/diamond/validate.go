package diamond

import (
	"context"
	"fmt"
)

// FindingKind classifies a single validation finding.
type FindingKind string

// Kinds of validation findings.
const (
	// FindingCycle means a branch's chain of bases loops back on
	// itself without ever reaching the trunk.
	FindingCycle FindingKind = "cycle"

	// FindingOrphan means a branch's recorded base is neither the
	// trunk nor another tracked branch.
	FindingOrphan FindingKind = "orphan"

	// FindingMissingGitBranch means a tracked branch has no
	// corresponding local Git branch.
	FindingMissingGitBranch FindingKind = "missing-git-branch"

	// FindingDetachedTrunk means the configured trunk branch does
	// not exist as a local Git branch.
	FindingDetachedTrunk FindingKind = "detached-trunk"
)

// Finding describes a single problem found while validating the
// stack's recorded metadata.
type Finding struct {
	// Kind classifies the problem.
	Kind FindingKind

	// Branch is the branch the finding is about.
	Branch string

	// Message is a human-readable description of the problem.
	Message string

	// Fixable reports whether [Repair] can resolve this finding
	// automatically. Cycles are never auto-fixable: they require a
	// person to decide which edge to break.
	Fixable bool
}

// LocalBrancher is the subset of [git.Repository] validation needs to
// cross-check recorded metadata against the state of the working
// copy.
type LocalBrancher interface {
	BranchExists(ctx context.Context, branch string) bool
}

// Validate inspects the stack's recorded metadata for violations of
// the engine's invariants: that every branch's chain of bases reaches
// the trunk, that every recorded base is itself tracked (or is the
// trunk), and that every tracked branch and the trunk still exist as
// local Git branches.
//
// Validate does not modify anything. Use [Repair] to fix findings
// marked [Finding.Fixable].
func Validate(ctx context.Context, s *Store, repo LocalBrancher) ([]Finding, error) {
	var findings []Finding

	if repo != nil && !repo.BranchExists(ctx, s.Trunk()) {
		findings = append(findings, Finding{
			Kind:    FindingDetachedTrunk,
			Branch:  s.Trunk(),
			Message: fmt.Sprintf("trunk branch %q does not exist", s.Trunk()),
		})
	}

	names, err := s.ListBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}

	states := make(map[string]*BranchState, len(names))
	for _, name := range names {
		b, err := s.LookupBranch(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("lookup %q: %w", name, err)
		}
		states[name] = b
	}

	for _, name := range names {
		b := states[name]

		if repo != nil && !repo.BranchExists(ctx, name) {
			findings = append(findings, Finding{
				Kind:    FindingMissingGitBranch,
				Branch:  name,
				Message: fmt.Sprintf("branch %q is tracked but does not exist", name),
				Fixable: true,
			})
		}

		if b.Base != s.Trunk() {
			if _, tracked := states[b.Base]; !tracked {
				findings = append(findings, Finding{
					Kind:    FindingOrphan,
					Branch:  name,
					Message: fmt.Sprintf("branch %q has base %q, which is not tracked", name, b.Base),
					Fixable: true,
				})
			}
		}
	}

	for _, name := range names {
		if path := findCycle(name, states, s.Trunk()); path != nil {
			findings = append(findings, Finding{
				Kind:    FindingCycle,
				Branch:  name,
				Message: fmt.Sprintf("branch %q is part of a cycle: %v", name, path),
			})
		}
	}

	return findings, nil
}

// findCycle walks the base chain starting at start and returns the
// cycle (starting and ending at the repeated branch) if one exists,
// or nil if the chain reaches trunk cleanly.
func findCycle(start string, states map[string]*BranchState, trunk string) []string {
	var path []string
	seen := make(map[string]int, len(states))
	cur := start
	for {
		if cur == trunk {
			return nil
		}
		if idx, ok := seen[cur]; ok {
			return append(path[idx:], cur)
		}
		b, ok := states[cur]
		if !ok {
			// Orphan, not a cycle; reported separately.
			return nil
		}
		seen[cur] = len(path)
		path = append(path, cur)
		cur = b.Base
	}
}

// Repair attempts to resolve every [Finding.Fixable] finding returned
// by [Validate]:
//
//   - A branch whose local Git branch is gone is forgotten entirely.
//   - A branch whose base is not tracked is re-parented onto the
//     trunk, so it is not lost from the stack.
//
// Findings that are not fixable, such as cycles, are left untouched
// and returned again in the result.
func Repair(ctx context.Context, s *Store, findings []Finding) ([]Finding, error) {
	var remaining []Finding
	for _, f := range findings {
		if !f.Fixable {
			remaining = append(remaining, f)
			continue
		}

		switch f.Kind {
		case FindingMissingGitBranch:
			if err := s.ForgetBranch(ctx, f.Branch); err != nil {
				return nil, fmt.Errorf("forget %q: %w", f.Branch, err)
			}
		case FindingOrphan:
			if err := s.UpsertBranch(ctx, UpsertRequest{
				Name:    f.Branch,
				Base:    s.Trunk(),
				Message: fmt.Sprintf("repair: re-parent %s onto trunk", f.Branch),
			}); err != nil {
				return nil, fmt.Errorf("reparent %q: %w", f.Branch, err)
			}
		default:
			remaining = append(remaining, f)
		}
	}
	return remaining, nil
}
