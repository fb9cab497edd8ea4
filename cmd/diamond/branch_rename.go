package main

import (
	"context"
	"fmt"

	"github.com/rsperko/diamond/internal/log"
)

type branchRenameCmd struct {
	OldName string `arg:"" optional:"" predictor:"trackedBranches" help:"Branch to rename; defaults to the current branch"`
	NewName string `arg:"" help:"New name for the branch"`
}

func (*branchRenameCmd) Help() string {
	return "Renames a tracked branch and updates every branch that records it as a base."
}

func (cmd *branchRenameCmd) Run(ctx context.Context, logger *log.Logger) error {
	repo, svc, err := openService(ctx, logger)
	if err != nil {
		return err
	}

	if cmd.OldName == "" {
		cmd.OldName, err = repo.CurrentBranch(ctx)
		if err != nil {
			return fmt.Errorf("get current branch: %w", err)
		}
	}

	if err := svc.Rename(ctx, cmd.OldName, cmd.NewName); err != nil {
		return fmt.Errorf("rename branch: %w", err)
	}

	if cmd.OldName != "" {
		if err := repo.Checkout(ctx, cmd.NewName); err != nil {
			logger.Warnf("renamed branch but failed to check it out: %v", err)
		}
	}

	logger.Infof("renamed %s to %s", cmd.OldName, cmd.NewName)
	return nil
}
