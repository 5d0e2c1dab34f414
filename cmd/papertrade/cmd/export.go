package cmd

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/roundtrip"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export reconciled round trips as an analysis CSV",
	Long: `Reconcile the trade log into FIFO round trips and write the CSV the
behavioral analysis service ingests (columns: timestamp, asset, side,
quantity, entry_price, exit_price, profit_loss, balance).

Example:
  papertrade export --db papertrade.db --cash 100000 -o trades.csv`,
	RunE: runExport,
}

var (
	exportDBPath  string
	exportOutPath string
	exportCash    string
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportDBPath, "db", "papertrade.db", "path to the journal database")
	exportCmd.Flags().StringVarP(&exportOutPath, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&exportCash, "cash", "100000", "starting cash for the balance column")
}

func runExport(cmd *cobra.Command, args []string) error {
	startingCash, err := decimal.NewFromString(exportCash)
	if err != nil {
		return fmt.Errorf("starting cash: %w", err)
	}

	j, err := journal.NewSQLite(exportDBPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	fills, err := j.Fills()
	if err != nil {
		return fmt.Errorf("read fills: %w", err)
	}

	out := os.Stdout
	if exportOutPath != "" {
		f, err := os.Create(exportOutPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	trips := roundtrip.Reconcile(fills)
	return roundtrip.WriteAnalysisCSV(out, trips, startingCash)
}
