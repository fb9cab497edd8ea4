package main

import (
	"context"
	"fmt"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/log"
)

type branchOntoCmd struct {
	Branch string `arg:"" optional:"" predictor:"trackedBranches" help:"Branch to move; defaults to the current branch"`
	Onto   string `arg:"" predictor:"branches" help:"New base branch"`
	DryRun bool   `help:"Print the plan without moving anything"`
}

func (*branchOntoCmd) Help() string {
	return "Retargets a branch onto a new base and restacks it there immediately."
}

func (cmd *branchOntoCmd) Run(ctx context.Context, logger *log.Logger) error {
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
		logger.Infof("would retarget %s onto %s", cmd.Branch, cmd.Onto)
		for _, b := range diamond.Plan(graph, cmd.Branch, false) {
			logger.Infof("would restack %s", b)
		}
		return nil
	}

	report, err := svc.Move(ctx, diamond.MoveRequest{Branch: cmd.Branch, Onto: cmd.Onto})
	if err != nil {
		return fmt.Errorf("move branch: %w", err)
	}

	if logRestackReport(logger, report) {
		return fmt.Errorf("%s: move paused on conflict", cmd.Branch)
	}
	return nil
}
