// Package main is the terminal entry point of the interview coach.
//
// Usage:
//
//	mockinterview <command> [subcommand] [args]
//
// Commands:
//
//	run      - Run an interview in the terminal
//	reports  - List and show saved interview reports
//	bank     - Validate a question bank file
package main

import (
	"fmt"
	"os"

	"mockinterview/cmd/mockinterview/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
