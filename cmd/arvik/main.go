package main

import (
	"fmt"
	"os"

	"github.com/dargueta/arvik/exitcode"
)

func main() {
	app := newApp()
	err := app.Run(os.Args)
	if err != nil {
		// Errors from actions exit on their own; anything that gets here came
		// from the command line parser.
		fmt.Fprintf(os.Stderr, "arvik: %s\n", err.Error())
		os.Exit(int(exitcode.InvalidOption))
	}
}
