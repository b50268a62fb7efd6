package main

import (
	"os"

	"github.com/brancharchitect/phylomovie/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
