// Command diamond manages a stack of local Git branches: it tracks
// how branches relate to one another and keeps them in sync with
// their bases after history changes underneath them.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"go.abhg.dev/komplete"

	"github.com/rsperko/diamond/internal/log"
)

var _version = "dev"

func main() {
	logger := log.New(os.Stderr, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		<-sigc
		signal.Stop(sigc)
		logger.Warn("interrupted, press Ctrl-C again to exit immediately")
		cancel()
	}()

	var cmd rootCmd
	parser, err := kong.New(&cmd,
		kong.Name("diamond"),
		kong.Description("diamond manages a stack of local Git branches."),
		kong.UsageOnError(),
		kong.Bind(logger),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err != nil {
		logger.Fatalf("build CLI: %v", err)
	}

	komplete.Run(parser,
		komplete.WithPredictor("branches", komplete.PredictFunc(predictBranches)),
		komplete.WithPredictor("trackedBranches", komplete.PredictFunc(predictTrackedBranches)),
		komplete.WithPredictor("remotes", komplete.PredictFunc(predictRemotes)),
	)

	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	kctx.FatalIfErrorf(kctx.Run(logger))
}
