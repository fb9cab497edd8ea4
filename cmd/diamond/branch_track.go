package main

import (
	"context"
	"fmt"

	"github.com/rsperko/diamond/internal/log"
)

type branchTrackCmd struct {
	Name string `arg:"" optional:"" predictor:"branches" help:"Branch to track; defaults to the current branch"`
	Base string `placeholder:"NAME" predictor:"trackedBranches" required:"" help:"Base branch it was built on top of"`
}

func (*branchTrackCmd) Help() string {
	return "Starts tracking an existing Git branch as part of the stack."
}

func (cmd *branchTrackCmd) Run(ctx context.Context, logger *log.Logger) error {
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

	if err := svc.Track(ctx, cmd.Name, cmd.Base); err != nil {
		return fmt.Errorf("track branch: %w", err)
	}

	logger.Infof("tracking %s on %s", cmd.Name, cmd.Base)
	return nil
}
