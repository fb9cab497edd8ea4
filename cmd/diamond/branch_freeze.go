package main

import (
	"context"
	"fmt"

	"github.com/rsperko/diamond/internal/log"
)

type branchFreezeCmd struct {
	Name string `arg:"" optional:"" predictor:"trackedBranches" help:"Branch to freeze; defaults to the current branch"`
}

func (*branchFreezeCmd) Help() string {
	return "Marks a branch as frozen: the engine will never rewrite its history."
}

func (cmd *branchFreezeCmd) Run(ctx context.Context, logger *log.Logger) error {
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
	if err := svc.Freeze(ctx, cmd.Name); err != nil {
		return fmt.Errorf("freeze branch: %w", err)
	}
	logger.Infof("froze %s", cmd.Name)
	return nil
}

type branchUnfreezeCmd struct {
	Name string `arg:"" optional:"" predictor:"trackedBranches" help:"Branch to unfreeze; defaults to the current branch"`
}

func (*branchUnfreezeCmd) Help() string {
	return "Removes the frozen marker from a branch."
}

func (cmd *branchUnfreezeCmd) Run(ctx context.Context, logger *log.Logger) error {
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
	if err := svc.Unfreeze(ctx, cmd.Name); err != nil {
		return fmt.Errorf("unfreeze branch: %w", err)
	}
	logger.Infof("unfroze %s", cmd.Name)
	return nil
}
