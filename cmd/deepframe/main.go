// deepframe: analysis frameworks with conditional widgets, served over MCP.
//
// Usage:
//
//	deepframe serve              # Start MCP server (stdio transport)
//	deepframe validate <file>    # Check a framework document
//	deepframe import <file>      # Store a framework document
//	deepframe export <id> [-o f] # Write a stored framework
//	deepframe list               # List stored frameworks
//	deepframe update             # Update to the latest release
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRoot().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
