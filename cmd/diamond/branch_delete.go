package main

import (
	"context"
	"fmt"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/log"
)

type branchDeleteCmd struct {
	Name   string `arg:"" optional:"" predictor:"trackedBranches" help:"Branch to delete; defaults to the current branch"`
	Force  bool   `short:"f" help:"Delete even if the branch has unmerged changes"`
	DryRun bool   `help:"Print the plan without deleting anything"`
}

func (*branchDeleteCmd) Help() string {
	return "Untracks and deletes a branch, re-parenting any branches above it."
}

func (cmd *branchDeleteCmd) Run(ctx context.Context, logger *log.Logger) error {
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

	if cmd.DryRun {
		graph, err := diamond.LoadGraph(ctx, svc.Store())
		if err != nil {
			return fmt.Errorf("load graph: %w", err)
		}
		children := graph.Children(cmd.Name)
		logger.Infof("would back up, untrack, and delete %s", cmd.Name)
		for _, child := range children {
			logger.Infof("would re-parent %s onto %s's former base", child, cmd.Name)
		}
		return nil
	}

	if err := svc.Delete(ctx, diamond.DeleteRequest{Name: cmd.Name, Force: cmd.Force}); err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}

	logger.Infof("deleted %s", cmd.Name)
	return nil
}
