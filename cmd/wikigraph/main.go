// Package main provides the entry point for the wikigraph CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/wikigraph/cmd/wikigraph/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
