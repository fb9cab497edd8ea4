package diamond

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rsperko/diamond/internal/osutil"
)

const _opStateFile = "diamond" + string(filepath.Separator) + "operation_state.json"

// ErrNoOperation indicates that no operation is currently suspended.
var ErrNoOperation = errors.New("no operation in progress")

// OperationState is the durable record of an interrupted multi-step
// operation: what was being done, which branch was being worked on
// when it paused, and what remains to be done once the conflict that
// paused it is resolved.
//
// Exactly one OperationState may be on disk at a time: until it is
// cleared, commands other than the ones that continue or abort the
// operation refuse to run.
type OperationState struct {
	// Kind names the command that is suspended, e.g. "restack" or
	// "sync".
	Kind string `json:"kind"`

	// Branch is the branch the suspended step was operating on.
	Branch string `json:"branch"`

	// Continuations holds the remaining steps to perform once the
	// current one is unblocked, in the order they should run.
	Continuations []Continuation `json:"continuations,omitempty"`

	// Backups records the backup ref taken for every branch this
	// operation has touched so far, including Branch itself, so that
	// Abort can restore all of them, not just the one paused on.
	Backups []BackupRecord `json:"backups,omitempty"`

	// StartedAt is when the operation began.
	StartedAt time.Time `json:"startedAt"`
}

// Continuation is a single pending step of a suspended operation.
type Continuation struct {
	// Branch is the branch the step applies to.
	Branch string `json:"branch"`

	// Kind describes the step to run, e.g. "restack".
	Kind string `json:"kind"`
}

// BackupRecord names the backup ref taken for a branch before an
// operation mutated it.
type BackupRecord struct {
	// Branch is the branch that was backed up.
	Branch string `json:"branch"`

	// Ref is the full name of the backup ref, per [BackupRef].
	Ref string `json:"ref"`
}

// OpStateStore persists a single [OperationState] to disk, so that an
// operation interrupted by a conflict can be resumed or aborted in a
// later invocation of the program.
type OpStateStore struct {
	path string
}

// NewOpStateStore returns an OpStateStore that persists its state
// under the repository's Git directory.
func NewOpStateStore(gitDir string) *OpStateStore {
	return &OpStateStore{path: filepath.Join(gitDir, _opStateFile)}
}

// Load reads the current operation state.
// It returns [ErrNoOperation] if no operation is suspended.
func (s *OpStateStore) Load() (*OperationState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoOperation
		}
		return nil, fmt.Errorf("read operation state: %w", err)
	}

	var state OperationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse operation state: %w", err)
	}
	return &state, nil
}

// Save records state as the current suspended operation, overwriting
// any previous one.
//
// The write is performed by writing to a temporary file in the same
// directory and renaming it into place, so that a crash mid-write
// never leaves a truncated or partially-written state file behind.
func (s *OpStateStore) Save(state *OperationState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal operation state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmpPath, err := osutil.TempFilePath(dir, ".operation_state-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmpPath) }()

	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Clear removes the current operation state, if any.
// Clearing an already-clear state is not an error.
func (s *OpStateStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove operation state: %w", err)
	}
	return nil
}
