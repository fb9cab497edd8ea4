package main

import (
	"context"
	"fmt"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/log"
)

type branchFoldCmd struct {
	Branch string `arg:"" optional:"" predictor:"trackedBranches" help:"Branch to fold into its base; defaults to the current branch"`
	DryRun bool   `help:"Print the plan without folding anything"`
}

func (*branchFoldCmd) Help() string {
	return "Merges a branch's commits into its base and removes the branch, " +
		"re-parenting any branches above it onto the base."
}

func (cmd *branchFoldCmd) Run(ctx context.Context, logger *log.Logger) error {
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
		b, err := svc.Store().LookupBranch(ctx, cmd.Branch)
		if err != nil {
			return fmt.Errorf("look up %v: %w", cmd.Branch, err)
		}
		logger.Infof("would fold %s into %s and delete %s", cmd.Branch, b.Base, cmd.Branch)
		return nil
	}

	if err := svc.Fold(ctx, diamond.FoldRequest{Branch: cmd.Branch}); err != nil {
		return fmt.Errorf("fold branch: %w", err)
	}

	logger.Infof("folded %s into its base", cmd.Branch)
	return nil
}
