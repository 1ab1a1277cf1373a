// Command convorun-demo wires an in-memory conversation store, a scripted
// provider agent, and the scheduler together so the duplex run loop can be
// exercised end to end from a terminal, without any real model provider
// credentials.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	root := buildRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "convorun-demo",
		Short:        "Run a scripted conversation against the in-memory scheduler",
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
	}
	root.AddCommand(buildChatCmd(), buildReplayCmd())
	return root
}
