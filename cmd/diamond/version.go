package main

import (
	"fmt"
	"io"

	"github.com/alecthomas/kong"
)

type versionCmd struct{}

func (*versionCmd) Run(kctx *kong.Context) error {
	printVersion(kctx.Stdout)
	return nil
}

func printVersion(w io.Writer) {
	fmt.Fprintln(w, "diamond", _version)
}
