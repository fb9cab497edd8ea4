package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/log"
)

type logCmd struct {
	Branch string `arg:"" optional:"" predictor:"trackedBranches" help:"Branch whose stack to show; defaults to the current branch"`
}

func (*logCmd) Help() string {
	return "Shows the branches in the stack containing the given branch, from trunk upward."
}

func (cmd *logCmd) Run(ctx context.Context, logger *log.Logger) error {
	repo, svc, err := openService(ctx, logger)
	if err != nil {
		return err
	}

	if cmd.Branch == "" {
		cmd.Branch, err = repo.CurrentBranch(ctx)
		if err != nil {
			return fmt.Errorf("get current branch: %w", err)
		}
	}

	graph, err := diamond.LoadGraph(ctx, svc.Store())
	if err != nil {
		return fmt.Errorf("load stack: %w", err)
	}

	current, err := repo.CurrentBranch(ctx)
	if err != nil {
		current = ""
	}

	root := cmd.Branch
	if !graph.Contains(root) {
		root = graph.Trunk()
	}

	for branch := range graph.Stack(root) {
		depth := 0
		for b := branch; b != graph.Trunk(); {
			parent, ok := graph.Parent(b)
			if !ok {
				break
			}
			b = parent
			depth++
		}

		marker := "  "
		if branch == current {
			marker = "* "
		}

		frozen := ""
		if fz, err := svc.Store().IsFrozen(ctx, branch); err == nil && fz {
			frozen = " (frozen)"
		}

		fmt.Println(marker + strings.Repeat("  ", depth) + branch + frozen)
	}

	return nil
}
