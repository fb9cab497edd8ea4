package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"iter"
	"strings"
)

// SetRefRequest is a request to set a ref to a new hash.
type SetRefRequest struct {
	// Ref is the name of the ref to set.
	// If the ref is a branch or tag, it should be fully qualified
	// (e.g., "refs/heads/main" or "refs/tags/v1.0").
	Ref string

	// Hash is the hash to set the ref to.
	Hash Hash

	// OldHash, if set, specifies the current value of the ref.
	// The ref will only be updated if it currently points to OldHash.
	// Set this to ZeroHash to ensure that a ref being created
	// does not already exist.
	OldHash Hash

	// Reason, if set, is recorded in the ref's reflog
	// as the reason for this update.
	Reason string
}

// SetRef changes the value of a ref to a new hash.
//
// It optionally allows verifying the current value of the ref
// before updating it.
func (r *Repository) SetRef(ctx context.Context, req SetRefRequest) error {
	// git update-ref [-m <reason>] <rev> <newvalue> [<oldvalue>]
	args := []string{"update-ref"}
	if req.Reason != "" {
		args = append(args, "-m", req.Reason)
	}
	args = append(args, req.Ref, string(req.Hash))
	if req.OldHash != "" {
		args = append(args, string(req.OldHash))
	}

	return r.gitCmd(ctx, args...).Run(r.exec)
}

// GetRef resolves a ref to the hash it currently points to.
// It returns [ErrNotExist] if the ref does not exist.
func (r *Repository) GetRef(ctx context.Context, ref string) (Hash, error) {
	hash, err := r.gitCmd(ctx,
		"rev-parse",
		"--verify",
		"--quiet",
		"--end-of-options",
		ref,
	).Stderr(nil).OutputString(r.exec)
	if err != nil {
		return ZeroHash, ErrNotExist
	}
	return Hash(hash), nil
}

// DeleteRefRequest specifies the parameters for deleting a ref.
type DeleteRefRequest struct {
	// Ref is the fully-qualified name of the ref to delete.
	Ref string

	// OldHash, if set, requires that the ref currently point to this
	// hash before it is deleted.
	OldHash Hash
}

// DeleteRef removes a ref from the repository.
// Deleting a ref that does not exist is not an error.
func (r *Repository) DeleteRef(ctx context.Context, req DeleteRefRequest) error {
	args := []string{"update-ref", "-d", req.Ref}
	if req.OldHash != "" {
		args = append(args, string(req.OldHash))
	}
	return r.gitCmd(ctx, args...).Run(r.exec)
}

// Ref is a single reference returned by [Repository.ForEachRef].
type Ref struct {
	// Name is the fully-qualified name of the ref,
	// e.g. "refs/heads/main".
	Name string

	// Hash is the object that the ref points to.
	Hash Hash
}

// ForEachRef enumerates refs matching the given prefix,
// e.g. "refs/diamond/parent/".
//
// Refs are yielded in lexicographic order by name.
func (r *Repository) ForEachRef(ctx context.Context, prefix string) iter.Seq2[Ref, error] {
	return func(yield func(Ref, error) bool) {
		cmd := r.gitCmd(ctx,
			"for-each-ref",
			"--format=%(objectname) %(refname)",
			prefix,
		)
		out, err := cmd.StdoutPipe()
		if err != nil {
			yield(Ref{}, fmt.Errorf("pipe stdout: %w", err))
			return
		}

		if err := cmd.Start(r.exec); err != nil {
			yield(Ref{}, fmt.Errorf("start git for-each-ref: %w", err))
			return
		}
		var finished bool
		defer func() {
			if !finished {
				_ = cmd.Kill(r.exec)
			}
		}()

		scan := bufio.NewScanner(out)
		for scan.Scan() {
			line := bytes.TrimSpace(scan.Bytes())
			if len(line) == 0 {
				continue
			}

			hash, name, ok := bytes.Cut(line, []byte{' '})
			if !ok {
				r.log.Warnf("skipping malformed for-each-ref line: %q", line)
				continue
			}

			if !yield(Ref{Name: string(name), Hash: Hash(hash)}, nil) {
				return
			}
		}

		if err := scan.Err(); err != nil {
			yield(Ref{}, fmt.Errorf("read output: %w", err))
			return
		}

		if err := cmd.Wait(r.exec); err != nil {
			yield(Ref{}, fmt.Errorf("git for-each-ref: %w", err))
			return
		}

		finished = true
	}
}

// DefaultBranch reports the default branch of a remote.
// The remote must be known to the repository.
func (r *Repository) DefaultBranch(ctx context.Context, remote string) (string, error) {
	ref, err := r.gitCmd(
		ctx, "symbolic-ref", "--short", "refs/remotes/"+remote+"/HEAD").
		OutputString(r.exec)
	if err != nil {
		return "", fmt.Errorf("symbolic-ref: %w", err)
	}

	ref = strings.TrimPrefix(ref, remote+"/")
	return ref, nil
}

// Refspec is a Git refspec, optionally with a force-push prefix ('+')
// and a destination ref separated by a colon.
//
// See git-fetch(1) and git-push(1) for the refspec format.
type Refspec string

// String returns the refspec as a string.
func (rs Refspec) String() string {
	return string(rs)
}

// Matches reports whether ref matches the source side of the refspec.
func (rs Refspec) Matches(ref string) bool {
	if ref == "" {
		return false
	}

	spec := strings.TrimPrefix(string(rs), "+")
	src, _, _ := strings.Cut(spec, ":")
	if src == "" {
		return false
	}

	idx := strings.IndexByte(src, '*')
	if idx == -1 {
		return src == ref
	}

	prefix, suffix := src[:idx], src[idx+1:]
	if len(ref) < len(prefix)+len(suffix) {
		return false
	}
	return strings.HasPrefix(ref, prefix) && strings.HasSuffix(ref, suffix)
}
