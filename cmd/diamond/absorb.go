package main

import (
	"context"
	"fmt"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/log"
)

type absorbCmd struct {
	Message string `short:"m" help:"Replacement message for the current branch tip; defaults to keeping it"`
}

func (*absorbCmd) Help() string {
	return "Folds staged changes into the current branch's tip commit and " +
		"restacks every branch above it."
}

func (cmd *absorbCmd) Run(ctx context.Context, logger *log.Logger) error {
	_, svc, err := openService(ctx, logger)
	if err != nil {
		return err
	}

	report, err := svc.Absorb(ctx, diamond.AbsorbRequest{Message: cmd.Message})
	if err != nil {
		return fmt.Errorf("absorb changes: %w", err)
	}

	if logRestackReport(logger, report) {
		return fmt.Errorf("absorb paused on conflict")
	}
	logger.Info("absorbed staged changes")
	return nil
}
