// Package main provides the entry point for the repowhisper CLI.
package main

import (
	"os"

	"github.com/repowhisper/repowhisper/cmd/repowhisper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
