package git

import (
	"bytes"
	"io"
	"testing"

	"github.com/rsperko/diamond/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitCmd_stderrLogging(t *testing.T) {
	// At LevelDebug, stderr is streamed straight to the logger
	// instead of being buffered for the returned error.
	var logBuffer bytes.Buffer
	logger := log.New(&logBuffer, &log.Options{Level: log.LevelDebug})

	err := newGitCmd(t.Context(), logger, "--unknown-flag").
		Dir(t.TempDir()).
		Run(_realExec)

	require.Error(t, err)
	assert.Contains(t, logBuffer.String(), "cmd=git --unknown-flag")
}

func TestGitCmd_stderrBuffered(t *testing.T) {
	// Above LevelDebug, stderr is buffered and attached to the
	// returned error instead of being logged immediately.
	logger := log.New(io.Discard, &log.Options{Level: log.LevelInfo})

	err := newGitCmd(t.Context(), logger, "--unknown-flag").
		Dir(t.TempDir()).
		Run(_realExec)

	require.Error(t, err)
	assert.ErrorContains(t, err, "stderr:")
}
