package main

import (
	"github.com/alecthomas/kong"

	"github.com/rsperko/diamond/internal/log"
)

type rootCmd struct {
	Verbose bool `short:"v" help:"Enable debug logging"`
	Quiet   bool `short:"q" help:"Only log warnings and errors"`

	Repo repoCmd `cmd:"" aliases:"r" group:"Repository"`

	Branch branchCmd `cmd:"" aliases:"b" group:"Branch"`

	Up   upCmd   `cmd:"" group:"Stack" help:"Check out the branch above the current one"`
	Down downCmd `cmd:"" group:"Stack" help:"Check out the branch below the current one"`
	Top  topCmd  `cmd:"" group:"Stack" help:"Check out the tip of the current sub-stack"`

	Sync     syncCmd     `cmd:"" group:"Stack" help:"Sync the stack with trunk"`
	Continue continueCmd `cmd:"" group:"Stack" help:"Continue an operation paused on a conflict"`
	Abort    abortCmd    `cmd:"" group:"Stack" help:"Abort an operation paused on a conflict"`
	Undo     undoCmd     `cmd:"" group:"Stack" help:"Show or revert recent stack operations"`
	Gc       gcCmd       `cmd:"" group:"Stack" help:"Prune old backup refs"`
	Log      logCmd      `cmd:"" aliases:"ls" group:"Stack" help:"Show the stack"`
	Doctor   doctorCmd   `cmd:"" group:"Stack" help:"Check the stack's recorded metadata for integrity problems"`

	Complete completeCmd `cmd:"" hidden:"" help:"Generate shell completion scripts"`

	Version versionFlag `help:"Print version information and quit"`
	Ver     versionCmd  `cmd:"version" help:"Print version information"`
}

func (cmd *rootCmd) AfterApply(logger *log.Logger) error {
	switch {
	case cmd.Verbose:
		logger.SetLevel(log.LevelDebug)
	case cmd.Quiet:
		logger.SetLevel(log.LevelWarn)
	}
	return nil
}

// versionFlag prints version information and exits, per Kong's
// flag-as-command convention.
type versionFlag bool

func (versionFlag) BeforeApply(app *kong.Kong) error {
	printVersion(app.Stdout)
	app.Exit(0)
	return nil
}
