package diamond

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sort"

	"go.abhg.dev/container/ring"

	"github.com/rsperko/diamond/internal/maputil"
)

// Graph is an in-memory snapshot of the stack: the trunk branch and
// every tracked branch's relationship to its parent. It is built
// fresh from the store at the start of each command, so that a
// single command observes a consistent view even if the underlying
// refs are inspected more than once.
type Graph struct {
	trunk string

	// byName holds the recorded state for every tracked branch,
	// keyed by branch name. The trunk branch is not present.
	byName map[string]*BranchState

	// byBase maps a branch name (or the trunk) to the names of
	// the branches directly above it, sorted lexicographically.
	byBase map[string][]string
}

// LoadGraph reads every tracked branch from the store and assembles
// the in-memory forest used for stack queries.
func LoadGraph(ctx context.Context, s *Store) (*Graph, error) {
	names, err := s.ListBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}

	g := &Graph{
		trunk:  s.Trunk(),
		byName: make(map[string]*BranchState, len(names)),
		byBase: make(map[string][]string),
	}

	for _, name := range names {
		b, err := s.LookupBranch(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("lookup %q: %w", name, err)
		}
		g.byName[name] = b
	}

	for _, name := range names {
		base := g.byName[name].Base
		g.byBase[base] = append(g.byBase[base], name)
	}
	for base := range g.byBase {
		sort.Strings(g.byBase[base])
	}

	return g, nil
}

// Trunk returns the name of the trunk branch.
func (g *Graph) Trunk() string {
	return g.trunk
}

// Contains reports whether branch is the trunk or a tracked branch.
func (g *Graph) Contains(branch string) bool {
	if branch == g.trunk {
		return true
	}
	_, ok := g.byName[branch]
	return ok
}

// Lookup returns the recorded state for a tracked branch, or false
// if the branch is untracked or is the trunk.
func (g *Graph) Lookup(branch string) (*BranchState, bool) {
	b, ok := g.byName[branch]
	return b, ok
}

// All returns the names of all tracked branches, in lexicographic
// order. The trunk branch is not included.
func (g *Graph) All() []string {
	names := maputil.Keys(g.byName)
	sort.Strings(names)
	return names
}

// Parent returns the base of branch, or ("", false) if branch is the
// trunk or is not tracked.
func (g *Graph) Parent(branch string) (string, bool) {
	b, ok := g.byName[branch]
	if !ok {
		return "", false
	}
	return b.Base, true
}

// Children returns the names of the branches whose recorded base is
// exactly branch, sorted lexicographically.
func (g *Graph) Children(branch string) []string {
	return slices.Clone(g.byBase[branch])
}

// Aboves iterates over the branches directly above branch in the
// stack, in lexicographic order.
func (g *Graph) Aboves(branch string) iter.Seq[string] {
	return slices.Values(g.byBase[branch])
}

// Upstack iterates over branch and every branch reachable by
// repeatedly following Aboves, visited breadth-first so that
// siblings are grouped together in lexicographic order.
func (g *Graph) Upstack(branch string) iter.Seq[string] {
	return func(yield func(string) bool) {
		var queue ring.Q[string]
		queue.Push(branch)

		for !queue.Empty() {
			cur := queue.Pop()
			if !yield(cur) {
				return
			}
			for _, child := range g.byBase[cur] {
				queue.Push(child)
			}
		}
	}
}

// Tops reports the branches upstack from branch (branch included)
// that have no branches above them: the tips of every sub-stack
// growing out of branch.
func (g *Graph) Tops(branch string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for b := range g.Upstack(branch) {
			if len(g.byBase[b]) == 0 {
				if !yield(b) {
					return
				}
			}
		}
	}
}

// Downstack iterates from the trunk down to, but not including,
// branch: trunk first, then each base in order until branch's
// immediate parent.
func (g *Graph) Downstack(branch string) iter.Seq[string] {
	return func(yield func(string) bool) {
		chain, err := g.chainToTrunk(branch)
		if err != nil {
			return
		}
		// chain is [branch, ..., trunk]; walk it in reverse,
		// excluding branch itself.
		for i := len(chain) - 1; i >= 1; i-- {
			if !yield(chain[i]) {
				return
			}
		}
	}
}

// Bottom returns the first tracked branch above the trunk in
// branch's downstack, or branch itself if it is already directly on
// the trunk.
func (g *Graph) Bottom(branch string) (string, error) {
	chain, err := g.chainToTrunk(branch)
	if err != nil {
		return "", err
	}
	// chain is [branch, ..., parentOfBottom, trunk].
	// The bottom is the entry just before trunk.
	if len(chain) < 2 {
		return branch, nil
	}
	return chain[len(chain)-2], nil
}

// chainToTrunk returns [branch, parent(branch), ..., trunk].
func (g *Graph) chainToTrunk(branch string) ([]string, error) {
	chain := []string{branch}
	cur := branch
	seen := map[string]struct{}{branch: {}}
	for cur != g.trunk {
		b, ok := g.byName[cur]
		if !ok {
			return nil, fmt.Errorf("branch %q is not tracked", cur)
		}
		cur = b.Base
		if _, dup := seen[cur]; dup {
			return nil, fmt.Errorf("cycle detected reaching trunk from %q", branch)
		}
		seen[cur] = struct{}{}
		chain = append(chain, cur)
	}
	return chain, nil
}

// Stack iterates over every branch in the same connected stack as
// branch: the trunk, the full downstack, branch itself, and the full
// upstack, in that order.
func (g *Graph) Stack(branch string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if !yield(g.trunk) {
			return
		}
		for b := range g.Downstack(branch) {
			if b == g.trunk {
				continue
			}
			if !yield(b) {
				return
			}
		}
		for b := range g.Upstack(branch) {
			if b == g.trunk {
				continue
			}
			if !yield(b) {
				return
			}
		}
	}
}

// Top returns the tip of the sub-stack branch sits in: the single
// branch reached by repeatedly following the lexicographically first
// child, starting from branch, until a branch with no children is
// reached.
func (g *Graph) Top(branch string) string {
	cur := branch
	for {
		children := g.byBase[cur]
		if len(children) == 0 {
			return cur
		}
		cur = children[0]
	}
}

// Up returns the branch k levels above branch in its sub-stack, or
// ("", false) if branch does not have that many branches above it.
// Where a branch has more than one child, Up follows the
// lexicographically first one.
func (g *Graph) Up(branch string, k int) (string, bool) {
	if k < 0 {
		return "", false
	}
	cur := branch
	for range k {
		children := g.byBase[cur]
		if len(children) == 0 {
			return "", false
		}
		cur = children[0]
	}
	return cur, true
}

// Down returns the branch k levels below branch toward trunk, or
// ("", false) if branch does not have that many branches below it.
// Trunk itself is a valid result but is never stepped past.
func (g *Graph) Down(branch string, k int) (string, bool) {
	if k < 0 {
		return "", false
	}
	cur := branch
	for range k {
		if cur == g.trunk {
			return "", false
		}
		b, ok := g.byName[cur]
		if !ok {
			return "", false
		}
		cur = b.Base
	}
	return cur, true
}

// NonLinearStackError is returned by [Graph.StackLinear] when the
// stack containing the given branch has a branch point: some branch
// in it has more than one branch directly above it.
type NonLinearStackError struct {
	// Branch is the name of the branch with more than one child.
	Branch string

	// Children lists the branches directly above Branch.
	Children []string
}

func (e *NonLinearStackError) Error() string {
	return fmt.Sprintf("branch %q has %d branches above it, stack is not linear", e.Branch, len(e.Children))
}

// StackLinear returns the full stack containing branch, ordered from
// the trunk upward, if and only if every branch in it has at most one
// branch directly above it. It returns [*NonLinearStackError]
// otherwise.
func (g *Graph) StackLinear(branch string) ([]string, error) {
	var names []string
	for b := range g.Stack(branch) {
		if children := g.byBase[b]; len(children) > 1 {
			return nil, &NonLinearStackError{Branch: b, Children: children}
		}
		names = append(names, b)
	}
	return names, nil
}
