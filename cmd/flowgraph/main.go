// Command flowgraph converts, lays out, validates and edits conditional
// workflow graphs, and serves the same operations over MCP.
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
