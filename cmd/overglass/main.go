package main

import (
	"os"

	"github.com/overglass/overglass/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
