// Package main provides the entry point for the chatcore CLI.
package main

import (
	"fmt"
	"os"

	"github.com/opencode-ai/chatcore/cmd/chatcore/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
