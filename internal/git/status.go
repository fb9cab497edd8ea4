package git

import (
	"bufio"
	"context"
	"fmt"
)

// IsClean reports whether the working tree and index have no
// uncommitted changes relative to HEAD.
func (r *Repository) IsClean(ctx context.Context) (bool, error) {
	out, err := r.gitCmd(ctx, "status", "--porcelain").OutputString(r.exec)
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return out == "", nil
}

// StageAll stages all changes in the working tree, including
// untracked files, mirroring 'git add -A'.
func (r *Repository) StageAll(ctx context.Context) error {
	if err := r.gitCmd(ctx, "add", "-A").Run(r.exec); err != nil {
		return fmt.Errorf("git add -A: %w", err)
	}
	return nil
}

// StageTrackedOnly stages changes to files already tracked by Git,
// leaving untracked files alone, mirroring 'git add -u'.
func (r *Repository) StageTrackedOnly(ctx context.Context) error {
	if err := r.gitCmd(ctx, "add", "-u").Run(r.exec); err != nil {
		return fmt.Errorf("git add -u: %w", err)
	}
	return nil
}

// DirtyFiles lists the paths, relative to the repository root,
// that have uncommitted changes in the working tree or index.
func (r *Repository) DirtyFiles(ctx context.Context) ([]string, error) {
	cmd := r.gitCmd(ctx, "status", "--porcelain")
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe stdout: %w", err)
	}
	if err := cmd.Start(r.exec); err != nil {
		return nil, fmt.Errorf("start git status: %w", err)
	}

	var files []string
	scan := bufio.NewScanner(out)
	for scan.Scan() {
		line := scan.Text()
		if len(line) < 4 {
			continue
		}
		files = append(files, line[3:])
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	if err := cmd.Wait(r.exec); err != nil {
		return nil, fmt.Errorf("git status: %w", err)
	}
	return files, nil
}
