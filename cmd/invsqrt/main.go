// Package main provides the invsqrt CLI.
package main

import (
	"os"

	"github.com/born-ml/invsqrt/cmd/invsqrt/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
