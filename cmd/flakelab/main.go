package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/flakelab/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		// Flag parsing errors come straight from cobra.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			os.Exit(cli.ExitCommandError)
		}
		os.Exit(exitErr.Code)
	}
}
