package main

import (
	"context"
	"fmt"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/log"
)

type upCmd struct {
	N int `arg:"" optional:"" default:"1" help:"Number of branches to move up"`
}

func (*upCmd) Help() string {
	return "Checks out the branch N levels above the current one. " +
		"Where a branch has more than one branch above it, the " +
		"lexicographically first is chosen."
}

func (cmd *upCmd) Run(ctx context.Context, logger *log.Logger) error {
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

	branch, ok := graph.Up(current, cmd.N)
	if !ok {
		return fmt.Errorf("%v: no branch %d level(s) upstack", current, cmd.N)
	}

	if err := repo.Checkout(ctx, branch); err != nil {
		return fmt.Errorf("checkout %v: %w", branch, err)
	}
	logger.Infof("switched to %s", branch)
	return nil
}
