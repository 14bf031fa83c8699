// Package main is the entry point for the rgbfix tool.
package main

import (
	"os"

	"github.com/sudowork/rgbfix/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
