package diamond

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rsperko/diamond/internal/git"
)

// GcGitRepository is the subset of [git.Repository] the backup
// garbage collector needs.
type GcGitRepository interface {
	ForEachRef(ctx context.Context, prefix string) iter.Seq2[git.Ref, error]
	DeleteRef(ctx context.Context, req git.DeleteRefRequest) error
}

// GcOptions controls which backup refs [Gc] considers disposable.
type GcOptions struct {
	// MaxAge deletes backup refs older than this, relative to now.
	// Zero means no age-based deletion.
	MaxAge time.Duration

	// MaxPerBranch keeps only the newest N backups per branch,
	// deleting the rest. Zero means no count-based deletion.
	MaxPerBranch int

	// Protect names backup refs that must never be deleted regardless
	// of age or count, because a suspended operation still depends on
	// them to restore from on abort.
	Protect []string
}

// GcReport records the backup refs [Gc] removed.
type GcReport struct {
	Deleted []BackupRecord
}

// Gc deletes backup refs under refs/diamond/backup/ that are older
// than opts.MaxAge or in excess of opts.MaxPerBranch newest per
// branch. It never touches any other ref namespace.
func Gc(ctx context.Context, repo GcGitRepository, now time.Time, opts GcOptions) (*GcReport, error) {
	const prefix = _refPrefix + "backup/"

	type backup struct {
		ref  string
		unix int64
	}
	byBranch := make(map[string][]backup)

	for ref, err := range repo.ForEachRef(ctx, prefix) {
		if err != nil {
			return nil, fmt.Errorf("enumerate backup refs: %w", err)
		}

		rest := strings.TrimPrefix(ref.Name, prefix)
		branch, stampSuffix, ok := strings.Cut(rest, "/")
		if !ok {
			continue
		}
		stamp, _, _ := strings.Cut(stampSuffix, "-")
		unix, err := strconv.ParseInt(stamp, 10, 64)
		if err != nil {
			continue
		}

		byBranch[branch] = append(byBranch[branch], backup{ref: ref.Name, unix: unix})
	}

	protected := make(map[string]bool, len(opts.Protect))
	for _, ref := range opts.Protect {
		protected[ref] = true
	}

	report := &GcReport{}
	for branch, backups := range byBranch {
		sort.Slice(backups, func(i, j int) bool { return backups[i].unix > backups[j].unix })

		for i, b := range backups {
			if protected[b.ref] {
				continue
			}

			keep := true
			if opts.MaxPerBranch > 0 && i >= opts.MaxPerBranch {
				keep = false
			}
			if opts.MaxAge > 0 && now.Sub(time.Unix(b.unix, 0)) > opts.MaxAge {
				keep = false
			}
			if keep {
				continue
			}

			if err := repo.DeleteRef(ctx, git.DeleteRefRequest{Ref: b.ref}); err != nil {
				return nil, fmt.Errorf("delete %v: %w", b.ref, err)
			}
			report.Deleted = append(report.Deleted, BackupRecord{Branch: branch, Ref: b.ref})
		}
	}

	return report, nil
}
