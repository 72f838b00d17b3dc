// Command workgraphd runs the work-item orchestration core: a persistent
// hierarchy of work items, dependency edges, and role-lifecycle state behind
// a fixed tool-handler API. The MCP transport itself is out of
// scope — this binary exposes the same tool-handler seam over
// stdin/stdout framing for local exercising, plus an inspect subcommand for
// humans.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// rootCtx is cancelled on SIGINT/SIGTERM so any in-flight handler call gets
// a chance to unwind before the process exits.
var (
	rootCtx    context.Context
	rootCancel context.CancelFunc

	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "workgraphd",
	Short: "workgraphd - work-item orchestration core",
	Long:  `A long-running process that maintains a tree of work items, dependency edges, and an auditable role lifecycle, exposed through a fixed set of tools.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "workgraph.toml", "Path to the process configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
