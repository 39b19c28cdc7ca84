// Package main is the imagectl command-line tool
package main

import (
	"os"

	"github.com/newmanyatta/manyatta/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
