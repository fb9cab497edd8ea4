package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/git"
	"github.com/rsperko/diamond/internal/log"
)

type repoCmd struct {
	Init repoInitCmd `cmd:"" help:"Initialize the stack for this repository"`
}

type repoInitCmd struct {
	Trunk  string `placeholder:"BRANCH" predictor:"branches" help:"Name of the trunk branch"`
	Remote string `placeholder:"NAME" predictor:"remotes" help:"Name of the remote to push to"`
}

func (*repoInitCmd) Help() string {
	return "" +
		"Records the trunk branch and remote for this repository.\n" +
		"This isn't strictly required: most other commands auto-initialize\n" +
		"using the current branch as trunk the first time they run."
}

func (cmd *repoInitCmd) Run(ctx context.Context, logger *log.Logger) error {
	repo, err := git.Open(ctx, ".", git.OpenOptions{Log: logger})
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}

	if cmd.Trunk == "" {
		current, err := repo.CurrentBranch(ctx)
		if err != nil {
			return fmt.Errorf("determine trunk branch: %w", err)
		}
		cmd.Trunk = current
	}

	if _, err := diamond.Initialize(ctx, repo, logger, diamond.InitializeRequest{
		Trunk:  cmd.Trunk,
		Remote: cmd.Remote,
	}); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	logger.Infof("initialized repository with trunk %q", cmd.Trunk)
	return nil
}

// openService opens the repository in the current directory and its
// stack service, auto-initializing the store with the current branch as
// trunk if it has never been initialized before.
func openService(ctx context.Context, logger *log.Logger) (*git.Repository, *diamond.Service, error) {
	repo, err := git.Open(ctx, ".", git.OpenOptions{Log: logger})
	if err != nil {
		return nil, nil, fmt.Errorf("open repository: %w", err)
	}

	store, err := diamond.Open(ctx, repo, logger)
	if err == nil {
		return repo, diamond.NewService(repo, store, logger), nil
	}
	if !errors.Is(err, diamond.ErrUninitialized) {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	logger.Info("repository not initialized: initializing with current branch as trunk")
	current, err := repo.CurrentBranch(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("determine trunk branch: %w", err)
	}

	svc, err := diamond.Initialize(ctx, repo, logger, diamond.InitializeRequest{Trunk: current})
	if err != nil {
		return nil, nil, fmt.Errorf("auto-initialize: %w", err)
	}
	return repo, svc, nil
}
