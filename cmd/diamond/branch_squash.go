package main

import (
	"context"
	"fmt"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/log"
)

type branchSquashCmd struct {
	Branch  string `arg:"" optional:"" predictor:"trackedBranches" help:"Branch to squash; defaults to the current branch"`
	Message string `short:"m" help:"Message for the squashed commit; defaults to the last commit's message"`
	DryRun  bool   `help:"Print the plan without squashing anything"`
}

func (*branchSquashCmd) Help() string {
	return "Collapses every commit unique to a branch into one, then restacks " +
		"the branches above it."
}

func (cmd *branchSquashCmd) Run(ctx context.Context, logger *log.Logger) error {
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
		graph, err := diamond.LoadGraph(ctx, svc.Store())
		if err != nil {
			return fmt.Errorf("load graph: %w", err)
		}
		logger.Infof("would squash the commits of %s into one", cmd.Branch)
		for above := range graph.Aboves(cmd.Branch) {
			for _, b := range diamond.Plan(graph, above, false) {
				logger.Infof("would restack %s", b)
			}
		}
		return nil
	}

	report, err := svc.Squash(ctx, diamond.SquashRequest{Branch: cmd.Branch, Message: cmd.Message})
	if err != nil {
		return fmt.Errorf("squash branch: %w", err)
	}

	if logRestackReport(logger, report) {
		return fmt.Errorf("squash paused on conflict")
	}
	logger.Infof("squashed %s", cmd.Branch)
	return nil
}
