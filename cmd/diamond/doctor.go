package main

import (
	"context"
	"fmt"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/log"
)

type doctorCmd struct {
	Fix bool `help:"Automatically repair every fixable finding"`
}

func (*doctorCmd) Help() string {
	return "Checks the recorded stack metadata for integrity problems: " +
		"cycles, orphaned bases, and branches missing from the working copy."
}

func (cmd *doctorCmd) Run(ctx context.Context, logger *log.Logger) error {
	repo, svc, err := openService(ctx, logger)
	if err != nil {
		return err
	}

	findings, err := diamond.Validate(ctx, svc.Store(), repo)
	if err != nil {
		return fmt.Errorf("validate stack: %w", err)
	}

	if len(findings) == 0 {
		logger.Info("no problems found")
		return nil
	}

	if cmd.Fix {
		findings, err = diamond.Repair(ctx, svc.Store(), findings)
		if err != nil {
			return fmt.Errorf("repair stack: %w", err)
		}
	}

	for _, f := range findings {
		logger.Errorf("%s: %s", f.Branch, f.Message)
	}

	if len(findings) > 0 {
		if cmd.Fix {
			return fmt.Errorf("%d problem(s) could not be repaired automatically", len(findings))
		}
		return fmt.Errorf("%d problem(s) found; run 'diamond doctor --fix' to repair what can be fixed automatically", len(findings))
	}

	logger.Info("repaired all fixable problems")
	return nil
}
