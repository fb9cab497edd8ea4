package git

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"strconv"
	"strings"
)

// CommitRange specifies a set of commits to enumerate,
// in the form accepted by 'git rev-list'.
type CommitRange struct {
	args []string
}

// CommitRangeFrom returns a [CommitRange] containing commitish
// and all of its ancestors.
func CommitRangeFrom(commitish string) CommitRange {
	return CommitRange{args: []string{commitish}}
}

// Exclude excludes commitish and its ancestors from the range.
func (r CommitRange) Exclude(commitish string) CommitRange {
	args := make([]string, 0, len(r.args)+2)
	args = append(args, r.args...)
	args = append(args, "--not", commitish)
	return CommitRange{args: args}
}

// ListCommits lists the commits in the given range,
// most recent first.
func (r *Repository) ListCommits(ctx context.Context, rng CommitRange) iter.Seq2[Hash, error] {
	return func(yield func(Hash, error) bool) {
		args := append([]string{"rev-list"}, rng.args...)
		cmd := r.gitCmd(ctx, args...)

		out, err := cmd.StdoutPipe()
		if err != nil {
			yield(ZeroHash, fmt.Errorf("pipe stdout: %w", err))
			return
		}

		if err := cmd.Start(r.exec); err != nil {
			yield(ZeroHash, fmt.Errorf("start git rev-list: %w", err))
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
			line := strings.TrimSpace(scan.Text())
			if line == "" {
				continue
			}
			if !yield(Hash(line), nil) {
				return
			}
		}

		if err := scan.Err(); err != nil {
			yield(ZeroHash, fmt.Errorf("read output: %w", err))
			return
		}

		if err := cmd.Wait(r.exec); err != nil {
			yield(ZeroHash, fmt.Errorf("git rev-list: %w", err))
			return
		}

		finished = true
	}
}

// CommitAheadBehind reports how many commits head is ahead of and behind
// base.
//
// ahead is the number of commits reachable from head but not base.
// behind is the number of commits reachable from base but not head.
func (r *Repository) CommitAheadBehind(ctx context.Context, base, head string) (ahead, behind int, err error) {
	out, err := r.gitCmd(ctx,
		"rev-list", "--left-right", "--count", base+"..."+head,
	).OutputString(r.exec)
	if err != nil {
		return 0, 0, fmt.Errorf("rev-list: %w", err)
	}

	fields := strings.Fields(out)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected rev-list output: %q", out)
	}

	behind, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("parse behind count: %w", err)
	}
	ahead, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parse ahead count: %w", err)
	}

	return ahead, behind, nil
}
