package main

import (
	"context"
	"time"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/log"
)

type gcCmd struct {
	MaxAge       time.Duration `default:"720h" help:"Delete backup refs older than this"`
	MaxPerBranch int           `default:"10" help:"Keep only the newest N backups per branch"`
}

func (*gcCmd) Help() string {
	return "Prunes backup refs recorded under refs/diamond/backup/, keeping " +
		"undo usable without the namespace growing without bound. Backups " +
		"belonging to a suspended operation are never removed."
}

func (cmd *gcCmd) Run(ctx context.Context, logger *log.Logger) error {
	_, svc, err := openService(ctx, logger)
	if err != nil {
		return err
	}

	report, err := svc.Gc(ctx, diamond.GcOptions{
		MaxAge:       cmd.MaxAge,
		MaxPerBranch: cmd.MaxPerBranch,
	})
	if err != nil {
		return err
	}

	if len(report.Deleted) == 0 {
		logger.Info("no backups to prune")
		return nil
	}
	for _, b := range report.Deleted {
		logger.Infof("%s: removed backup %s", b.Branch, b.Ref)
	}
	return nil
}
