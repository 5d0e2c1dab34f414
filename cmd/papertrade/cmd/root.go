package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "papertrade",
	Short: "A paper-trading account simulator and host",
	Long: `Papertrade maintains a synthetic brokerage account driven by live
price ticks and evaluates conditional orders against them.

It provides tools for:
  - Serving the account to a browser client over REST and websocket
  - Market, limit, stop-loss and take-profit paper orders
  - An append-only trade log with post-hoc notes
  - FIFO round-trip reconciliation and analysis CSV export
  - Durable versioned snapshots of the whole session`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
