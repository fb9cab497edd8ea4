package main

import (
	"context"
	"fmt"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/log"
)

type syncCmd struct {
	Branch string `arg:"" optional:"" predictor:"trackedBranches" help:"Currently checked-out branch, used to decide which conflicts must pause the sync; defaults to the current branch"`
	DryRun bool   `help:"Print the plan without syncing anything"`
}

func (*syncCmd) Help() string {
	return "Fetches from the remote, fast-forwards trunk, and restacks every " +
		"tracked branch reachable from trunk."
}

func (cmd *syncCmd) Run(ctx context.Context, logger *log.Logger) error {
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
		for _, b := range diamond.Plan(graph, "", true) {
			logger.Infof("would restack %s", b)
		}
		return nil
	}

	report, err := svc.Sync(ctx, diamond.SyncRequest{Branch: cmd.Branch})
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	if logRestackReport(logger, report) {
		return fmt.Errorf("sync paused on conflict")
	}
	return nil
}
