// Package main is the vortex command-line client for deploying and
// invoking functions against a running Vortex API server.
package main

import (
	"os"

	"github.com/divitsinghall/Vortex/cmd/vortex-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
