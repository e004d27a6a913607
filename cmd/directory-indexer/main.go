// Package main provides the entry point for the directory-indexer CLI.
package main

import (
	"os"

	"github.com/directory-indexer/directory-indexer/cmd/directory-indexer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
