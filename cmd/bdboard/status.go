package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/bdboard/internal/breaker"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate issue counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newBoard(cmd)
		if err != nil {
			return err
		}
		stats, err := b.Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("total: %d  open: %d  in progress: %d  blocked: %d  closed: %d  ready: %d\n",
			stats.TotalIssues, stats.OpenIssues, stats.InProgress, stats.Blocked, stats.ClosedIssue, stats.ReadyIssues)
		return nil
	},
}

var breakerCmd = &cobra.Command{
	Use:   "breaker",
	Short: "Show circuit breaker diagnostics",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newBoard(cmd)
		if err != nil {
			return err
		}
		if reset, _ := cmd.Flags().GetBool("reset"); reset {
			b.ResetBreaker()
			fmt.Println("breaker reset")
			return nil
		}
		printSnapshot(b.BreakerSnapshot())
		return nil
	},
}

func init() {
	breakerCmd.Flags().Bool("reset", false, "force the circuit closed")
}

func printSnapshot(s breaker.Snapshot) {
	fmt.Printf("state: %s\n", s.State)
	fmt.Printf("consecutive failures: %d\n", s.ConsecutiveFailures)
	fmt.Printf("automatic probes used: %d\n", s.AutoRetryCount)
	if s.State == breaker.StateOpen {
		if s.RetryIn > 0 {
			fmt.Printf("next probe in: %s\n", s.RetryIn)
		} else {
			fmt.Println("probe allowed now")
		}
	}
}
