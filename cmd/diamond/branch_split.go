package main

import (
	"context"
	"fmt"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/log"
)

type branchSplitCmd struct {
	Branch  string `arg:"" optional:"" predictor:"trackedBranches" help:"Branch to split; defaults to the current branch"`
	At      string `arg:"" help:"Commit, reachable from the branch but not its base, that becomes the tip of the lower half"`
	NewName string `arg:"" help:"Name of the new branch holding the lower half"`
	DryRun  bool   `help:"Print the plan without splitting anything"`
}

func (*branchSplitCmd) Help() string {
	return "Splits a branch into two tracked branches at a chosen commit."
}

func (cmd *branchSplitCmd) Run(ctx context.Context, logger *log.Logger) error {
	repo, svc, err := openService(ctx, logger)
	if err != nil {
		return err
	}

	if cmd.Branch == "" {
		cmd.Branch, err = repo.CurrentBranch(ctx)
		if err != nil {
			return fmt.Errorf("get current branch: %w", err)
		}
	}

	if cmd.DryRun {
		logger.Infof("would create %s from %s up to %s, and re-parent %s onto it",
			cmd.NewName, cmd.Branch, cmd.At, cmd.Branch)
		return nil
	}

	if err := svc.Split(ctx, diamond.SplitRequest{
		Branch:  cmd.Branch,
		At:      cmd.At,
		NewName: cmd.NewName,
	}); err != nil {
		return fmt.Errorf("split branch: %w", err)
	}

	logger.Infof("split %s into %s and %s", cmd.Branch, cmd.NewName, cmd.Branch)
	return nil
}
