package main

import (
	"context"
	"fmt"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/diamond/config"
	"github.com/rsperko/diamond/internal/log"
)

type branchCreateCmd struct {
	Name string `arg:"" optional:"" help:"Name of the new branch; generated from the commit message if omitted"`

	Base    string `placeholder:"NAME" predictor:"trackedBranches" help:"Base branch; defaults to the current branch"`
	Message string `short:"m" help:"Commit message for staged changes"`
}

func (*branchCreateCmd) Help() string {
	return "Creates a new branch on top of the base branch and tracks it in the stack."
}

func (cmd *branchCreateCmd) Run(ctx context.Context, logger *log.Logger) error {
	repo, svc, err := openService(ctx, logger)
	if err != nil {
		return err
	}

	if cmd.Name == "" {
		subject := cmd.Message
		if subject == "" {
			current, err := repo.CurrentBranch(ctx)
			if err == nil {
				subject, _ = repo.CommitSubject(ctx, current)
			}
		}

		slug := diamond.GenerateBranchName(subject)
		if slug == "" {
			return fmt.Errorf("could not derive a branch name: pass one explicitly")
		}

		cfg, err := config.Load(repo.GitDir())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cmd.Name, err = cfg.FormatBranchName(slug)
		if err != nil {
			return fmt.Errorf("format branch name: %w", err)
		}
	}

	if err := svc.Create(ctx, diamond.CreateRequest{
		Name:    cmd.Name,
		Base:    cmd.Base,
		Message: cmd.Message,
	}); err != nil {
		return fmt.Errorf("create branch: %w", err)
	}

	logger.Infof("created branch %s", cmd.Name)
	return nil
}
