package main

import (
	"context"
	"fmt"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/log"
)

type topCmd struct{}

func (*topCmd) Help() string {
	return "Checks out the tip of the current branch's sub-stack. Where a " +
		"branch has more than one branch above it, the lexicographically " +
		"first is followed."
}

func (*topCmd) Run(ctx context.Context, logger *log.Logger) error {
	repo, svc, err := openService(ctx, logger)
	if err != nil {
		return err
	}

	current, err := repo.CurrentBranch(ctx)
	if err != nil {
		return fmt.Errorf("get current branch: %w", err)
	}

	graph, err := diamond.LoadGraph(ctx, svc.Store())
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}

	branch := graph.Top(current)
	if branch == current {
		logger.Info("already on the top-most branch in this stack")
		return nil
	}

	if err := repo.Checkout(ctx, branch); err != nil {
		return fmt.Errorf("checkout %v: %w", branch, err)
	}
	logger.Infof("switched to %s", branch)
	return nil
}
