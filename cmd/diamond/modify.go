package main

import (
	"context"
	"fmt"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/log"
)

type modifyCmd struct {
	Amend   bool   `help:"Fold staged changes into the branch's tip commit instead of creating a new one"`
	Message string `short:"m" help:"Commit message; with --amend, leave empty to keep the tip's existing message"`
}

func (*modifyCmd) Help() string {
	return "Commits staged changes to the current branch and restacks " +
		"every branch above it."
}

func (cmd *modifyCmd) Run(ctx context.Context, logger *log.Logger) error {
	_, svc, err := openService(ctx, logger)
	if err != nil {
		return err
	}

	report, err := svc.Modify(ctx, diamond.ModifyRequest{Amend: cmd.Amend, Message: cmd.Message})
	if err != nil {
		return fmt.Errorf("modify branch: %w", err)
	}

	if logRestackReport(logger, report) {
		return fmt.Errorf("modify paused on conflict")
	}
	logger.Info("modified current branch")
	return nil
}
