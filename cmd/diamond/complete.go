package main

import (
	"context"
	"time"

	"go.abhg.dev/komplete"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/git"
)

type completeCmd struct {
	*komplete.Command `embed:""`
}

func (*completeCmd) Help() string {
	return "Generates shell completion scripts for diamond.\n\n" +
		"To install the script, add the generated script to your shell's\n" +
		"rc file. For example:\n\n" +
		"\t# bash\n" +
		"\tdiamond complete bash >> ~/.bashrc\n\n" +
		"\t# zsh\n" +
		"\tdiamond complete zsh >> ~/.zshrc\n\n" +
		"\t# fish\n" +
		"\tdiamond complete fish >> ~/.config/fish/config.fish\n"
}

func predictBranches(args komplete.Args) (predictions []string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	repo, err := git.Open(ctx, ".", git.OpenOptions{})
	if err != nil {
		return nil
	}

	branches, err := repo.LocalBranches(ctx, nil)
	if err != nil {
		return nil
	}

	for _, branch := range branches {
		predictions = append(predictions, branch.Name)
	}

	return predictions
}

func predictTrackedBranches(args komplete.Args) (predictions []string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	repo, err := git.Open(ctx, ".", git.OpenOptions{})
	if err != nil {
		return nil
	}

	store, err := diamond.Open(ctx, repo, nil /* log */)
	if err != nil {
		return nil // not initialized
	}

	branches, err := store.ListBranches(ctx)
	if err != nil {
		return nil
	}

	return branches
}

func predictRemotes(args komplete.Args) (predictions []string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	repo, err := git.Open(ctx, ".", git.OpenOptions{})
	if err != nil {
		return nil
	}

	remotes, err := repo.ListRemotes(ctx)
	if err != nil {
		return nil
	}

	return remotes
}
