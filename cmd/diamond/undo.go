package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/git"
	"github.com/rsperko/diamond/internal/log"
)

type undoCmd struct {
	List  bool `help:"List recent operations without reverting anything"`
	Entry int  `default:"0" help:"Index of the operation to undo, 0 being the most recent"`
}

func (*undoCmd) Help() string {
	return "Shows recent stack operations, or reverts one by resetting the " +
		"branches it touched to the backups taken before it ran."
}

func (cmd *undoCmd) Run(ctx context.Context, logger *log.Logger) error {
	repo, _, err := openService(ctx, logger)
	if err != nil {
		return err
	}

	oplog := diamond.NewOpLog(repo.GitDir())
	entries, err := oplog.Recent()
	if err != nil {
		return fmt.Errorf("read operation log: %w", err)
	}

	var target *diamond.OpLogEntry
	for i, entry := range entries {
		if cmd.List {
			logger.Infof("[%d] %s: %s (%s)", i, entry.Time.Format("2006-01-02 15:04:05"), entry.Description, entry.Command)
			continue
		}
		if i == cmd.Entry {
			e := entry
			target = &e
			break
		}
	}
	if cmd.List {
		return nil
	}
	if target == nil {
		return fmt.Errorf("no operation at index %d", cmd.Entry)
	}

	for _, branch := range target.Branches {
		hash, ref, err := latestBackup(ctx, repo, branch, target.Time)
		if err != nil {
			logger.Warnf("%s: no backup available to revert to: %v", branch, err)
			continue
		}

		if err := repo.SetRef(ctx, git.SetRefRequest{
			Ref:    "refs/heads/" + branch,
			Hash:   hash,
			Reason: fmt.Sprintf("undo: restore %s from %s", branch, ref),
		}); err != nil {
			return fmt.Errorf("restore %s: %w", branch, err)
		}
		logger.Infof("%s: restored from backup %s", branch, ref)
	}

	return nil
}

// latestBackup finds the most recent backup ref for branch taken at or
// before at, since an operation may have backed the branch up more than
// once across retries, and a later operation may have backed it up
// again since.
func latestBackup(ctx context.Context, repo *git.Repository, branch string, at time.Time) (git.Hash, string, error) {
	prefix := fmt.Sprintf("refs/diamond/backup/%s/", branch)

	var (
		bestRef  string
		bestHash git.Hash
		bestUnix int64
	)
	for ref, err := range repo.ForEachRef(ctx, prefix) {
		if err != nil {
			return "", "", err
		}

		stamp, _, _ := strings.Cut(strings.TrimPrefix(ref.Name, prefix), "-")
		unix, err := strconv.ParseInt(stamp, 10, 64)
		if err != nil || unix > at.Unix() {
			continue
		}
		if unix >= bestUnix {
			bestUnix, bestRef, bestHash = unix, ref.Name, ref.Hash
		}
	}

	if bestRef == "" {
		return "", "", fmt.Errorf("no backups recorded under %s at or before %s",
			strings.TrimSuffix(prefix, "/"), at.Format(time.RFC3339))
	}
	return bestHash, bestRef, nil
}
