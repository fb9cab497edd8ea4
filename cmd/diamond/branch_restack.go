package main

import (
	"context"
	"fmt"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/log"
)

type branchRestackCmd struct {
	Branch string `arg:"" optional:"" predictor:"trackedBranches" help:"Branch to restack; defaults to the current branch"`
}

func (*branchRestackCmd) Help() string {
	return "Rebases a branch onto the current head of its recorded base."
}

func (cmd *branchRestackCmd) Run(ctx context.Context, logger *log.Logger) error {
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

	b, err := svc.Store().LookupBranch(ctx, cmd.Branch)
	if err != nil {
		return fmt.Errorf("look up branch: %w", err)
	}

	report, err := svc.Move(ctx, diamond.MoveRequest{Branch: cmd.Branch, Onto: b.Base})
	if err != nil {
		return fmt.Errorf("restack branch: %w", err)
	}

	if logRestackReport(logger, report) {
		return fmt.Errorf("%s: restack paused on conflict", cmd.Branch)
	}
	return nil
}
