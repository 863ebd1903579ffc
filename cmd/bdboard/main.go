// bdboard is a terminal host for the board client layer: it renders
// the four-column issue board and exposes the client's read/write
// operations for scripting and smoke testing.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/steveyegge/bdboard/internal/client"
	"github.com/steveyegge/bdboard/internal/config"
	"github.com/steveyegge/bdboard/internal/debug"
	"github.com/steveyegge/bdboard/internal/telemetry"
)

// Version is stamped by the build.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "bdboard",
	Short: "bdboard - board view over the bd issue tracker",
	Long:  `A kanban-style board client for bd. Reads and writes go through the bd CLI; bdboard adds batching, caching and failure isolation on top.`,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("bdboard version %s\n", Version)
			return
		}
		_ = cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			debug.SetVerbose(true)
		}
		if err := telemetry.Init(cmd.Context(), Version); err != nil {
			fmt.Fprintf(os.Stderr, "warning: telemetry init failed: %v\n", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("workspace", "w", "", "workspace directory (default: current directory)")
	rootCmd.PersistentFlags().Bool("read-only", false, "reject all mutations locally")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable diagnostics output")
	rootCmd.Flags().Bool("version", false, "print version and exit")

	_ = viper.BindPFlag("read-only", rootCmd.PersistentFlags().Lookup("read-only"))

	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(labelCmd)
	rootCmd.AddCommand(depCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(breakerCmd)
}

// newBoard constructs the configured Board implementation for a
// command invocation.
func newBoard(cmd *cobra.Command) (client.Board, error) {
	workspace, _ := cmd.Flags().GetString("workspace")
	if workspace == "" {
		workspace, _ = os.Getwd()
	}
	opts, err := config.Load(workspace)
	if err != nil {
		return nil, err
	}
	if ro, _ := cmd.Flags().GetBool("read-only"); ro {
		opts.ReadOnly = true
	}
	return client.New(opts)
}

func main() {
	defer func() {
		_ = telemetry.Shutdown(context.Background())
	}()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
