// Package main is the entry point for the voxauth CLI.
//
// Usage:
//
//	voxauth [flags] <command> [args]
//
// Commands:
//
//	identity   - Manage enrolled identities (add, list, remove)
//	enroll     - Enroll voice samples for an identity
//	verify     - Verify a claimed identity against a recording
//	identify   - Identify the closest enrolled speaker
//	train      - Train the secondary classifier
//	attempts   - Show the verification audit log
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/voxauth/voxauth/cmd/voxauth/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
