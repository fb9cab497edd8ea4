package git

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rsperko/diamond/internal/log/logtest"
)

// NewTestRepository builds a [Repository] backed by a fake .git directory,
// useful for tests that mock out command execution entirely.
func NewTestRepository(t testing.TB, dir string, execer execer) *Repository {
	if dir == "" {
		dir = t.TempDir()
	}
	gitDir := filepath.Join(dir, ".git")
	if err := os.Mkdir(gitDir, 0o755); err != nil {
		if !errors.Is(err, os.ErrExist) {
			t.Fatalf("failed to create .git directory: %v", err)
		}
	}

	return newRepository(dir, gitDir, logtest.New(t), execer)
}
