package main

import (
	"context"
	"fmt"

	"github.com/rsperko/diamond/internal/log"
)

type continueCmd struct{}

func (*continueCmd) Help() string {
	return "Resumes whatever operation is currently paused on a conflict, " +
		"after the conflict has been resolved and staged."
}

func (*continueCmd) Run(ctx context.Context, logger *log.Logger) error {
	_, svc, err := openService(ctx, logger)
	if err != nil {
		return err
	}

	report, err := svc.Continue(ctx)
	if err != nil {
		return fmt.Errorf("continue: %w", err)
	}

	if logRestackReport(logger, report) {
		return fmt.Errorf("still paused on conflict")
	}
	return nil
}

type abortCmd struct{}

func (*abortCmd) Help() string {
	return "Cancels whatever operation is currently paused on a conflict."
}

func (*abortCmd) Run(ctx context.Context, logger *log.Logger) error {
	_, svc, err := openService(ctx, logger)
	if err != nil {
		return err
	}

	if err := svc.Abort(ctx); err != nil {
		return fmt.Errorf("abort: %w", err)
	}

	logger.Info("aborted")
	return nil
}
