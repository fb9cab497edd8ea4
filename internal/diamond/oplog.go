package diamond

import (
	"bufio"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"time"

	"github.com/rsperko/diamond/internal/iterutil"
)

const _opLogFile = "diamond" + string(filepath.Separator) + "operations.jsonl"

// OpOutcome classifies how an operation-log entry's command ended.
type OpOutcome string

const (
	// OutcomeSuccess means the command ran to completion.
	OutcomeSuccess OpOutcome = "success"

	// OutcomeFailure means the command errored out without
	// suspending on a conflict; nothing it touched is assumed safe
	// to undo from this entry alone.
	OutcomeFailure OpOutcome = "failure"

	// OutcomeSuspended means the command stopped partway through on
	// a conflict and is waiting on `continue` or `abort`.
	OutcomeSuspended OpOutcome = "suspended"

	// OutcomeAborted means a suspended command was cancelled via
	// `abort` and every branch it had touched was restored from
	// backup.
	OutcomeAborted OpOutcome = "aborted"
)

// OpLogEntry records one mutation attempt for the purposes of undo
// and auditing. Entries are append-only: once written, an entry is
// never rewritten, only superseded by a later one.
type OpLogEntry struct {
	// Time the operation completed.
	Time time.Time `json:"time"`

	// Command is the name of the mutation command that ran, e.g.
	// "branch create" or "branch fold".
	Command string `json:"command"`

	// Branches lists the branches the command touched.
	Branches []string `json:"branches"`

	// Description is a short, human-readable summary of what
	// changed, suitable for display in an undo listing.
	Description string `json:"description"`

	// Outcome classifies how the command ended.
	Outcome OpOutcome `json:"outcome"`

	// Backups lists the backup ref taken for each branch, if any,
	// so `undo`/`gc` can key off this entry instead of scanning the
	// ref namespace by timestamp.
	Backups []BackupRecord `json:"backups,omitempty"`

	// Error holds the error message, if the outcome is
	// [OutcomeFailure] and a message was available to record.
	Error string `json:"error,omitempty"`
}

// OpLog is an append-only record of completed mutations, used to
// support `undo` and to audit what a session of stack editing did.
type OpLog struct {
	path string
}

// NewOpLog returns an OpLog that appends to a file under the
// repository's Git directory.
func NewOpLog(gitDir string) *OpLog {
	return &OpLog{path: filepath.Join(gitDir, _opLogFile)}
}

// Append adds a new entry to the end of the log.
//
// The entry is written and fsynced before Append returns, so that a
// crash immediately afterward cannot lose a record of a mutation that
// already completed.
func (l *OpLog) Append(entry OpLogEntry) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return f.Sync()
}

// Entries returns every entry recorded in the log, oldest first.
func (l *OpLog) Entries() ([]OpLogEntry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var entries []OpLogEntry
	scan := bufio.NewScanner(f)
	scan.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scan.Scan() {
		line := scan.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry OpLogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("parse entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return entries, nil
}

// Recent yields the log's entries most-recent-first, numbered from 0,
// for display in an `undo` listing where entry 0 is what `undo` would
// revert.
func (l *OpLog) Recent() (iter.Seq2[int, OpLogEntry], error) {
	entries, err := l.Entries()
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}

	return iterutil.Enumerate(func(yield func(OpLogEntry) bool) {
		for i := len(entries) - 1; i >= 0; i-- {
			if !yield(entries[i]) {
				return
			}
		}
	}), nil
}

// Last returns the most recently appended entry.
// It returns false if the log is empty.
func (l *OpLog) Last() (OpLogEntry, bool, error) {
	entries, err := l.Entries()
	if err != nil {
		return OpLogEntry{}, false, err
	}
	if len(entries) == 0 {
		return OpLogEntry{}, false, nil
	}
	return entries[len(entries)-1], true, nil
}
