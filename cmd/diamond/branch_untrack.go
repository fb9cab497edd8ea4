package main

import (
	"context"
	"fmt"

	"github.com/rsperko/diamond/internal/log"
)

type branchUntrackCmd struct {
	Name string `arg:"" optional:"" predictor:"trackedBranches" help:"Branch to untrack; defaults to the current branch"`
}

func (*branchUntrackCmd) Help() string {
	return "Stops tracking a branch, without deleting it. Branches above it are " +
		"re-parented onto its former base."
}

func (cmd *branchUntrackCmd) Run(ctx context.Context, logger *log.Logger) error {
	repo, svc, err := openService(ctx, logger)
	if err != nil {
		return err
	}

	if cmd.Name == "" {
		cmd.Name, err = repo.CurrentBranch(ctx)
		if err != nil {
			return fmt.Errorf("get current branch: %w", err)
		}
	}

	if err := svc.Untrack(ctx, cmd.Name); err != nil {
		return fmt.Errorf("untrack branch: %w", err)
	}

	logger.Infof("untracked %s", cmd.Name)
	return nil
}
