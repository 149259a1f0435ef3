// Command deppoolctl demonstrates the dependency-aware task pool from the
// command line.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "deppoolctl",
		Usage: "run demonstration scenarios against a deppool.Pool",
		Commands: []*cli.Command{
			diamondCommand(),
			fireAndForgetCommand(),
			statsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
