package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/book"
	"github.com/rustyeddy/papertrade/engine"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/roundtrip"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted paper-trading session",
	Long: `Run a short scripted session against an in-memory account to show
the basic workflow:

  1. Buy at market with a stop-loss and take-profit attached
  2. Place a limit sell
  3. Feed ticks until the conditional orders trigger
  4. Print the account and the reconciled round trips`,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	eng := engine.New(decimal.NewFromInt(100000), journal.NewMemory())

	t0 := time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)
	tp := decimal.RequireFromString("165")
	sl := decimal.RequireFromString("142")

	fmt.Println("Buying 20 AAPL @ 150.00 with stop 142.00 / target 165.00")
	if _, err := eng.SubmitMarketOrder(engine.MarketOrderRequest{
		Symbol:     "AAPL",
		Side:       book.Buy,
		Quantity:   20,
		Price:      decimal.RequireFromString("150"),
		StopLoss:   &sl,
		TakeProfit: &tp,
		Time:       t0,
	}); err != nil {
		return err
	}

	fmt.Println("Placing limit sell 10 AAPL @ 158.00")
	if _, err := eng.SubmitConditionalOrder(engine.ConditionalOrderRequest{
		Symbol:   "AAPL",
		Side:     book.Sell,
		Kind:     book.Limit,
		Quantity: 10,
		Price:    decimal.RequireFromString("158"),
		Time:     t0.Add(time.Minute),
	}); err != nil {
		return err
	}

	prices := []string{"152.10", "155.40", "158.65", "161.90", "165.25"}
	for i, p := range prices {
		tick := market.Tick{
			Symbol: "AAPL",
			Price:  decimal.RequireFromString(p),
			Time:   t0.Add(time.Duration(i+2) * time.Minute),
		}
		fills, err := eng.OnPriceTick(tick)
		if err != nil {
			return err
		}
		fmt.Printf("tick AAPL @ %s", p)
		for _, f := range fills {
			fmt.Printf("  -> %s %s %d @ %s", f.Side, f.Symbol, f.Quantity, f.Price)
		}
		fmt.Println()
	}

	fmt.Printf("\nCash:            $%s\n", eng.Cash().StringFixed(2))
	fmt.Printf("Portfolio value: $%s\n", eng.PortfolioValue().StringFixed(2))
	for _, p := range eng.Positions() {
		fmt.Printf("Position: %s x%d avg %s (unrealized %s)\n",
			p.Symbol, p.Quantity, p.AvgCost.StringFixed(2), p.UnrealizedPL().StringFixed(2))
	}

	fills, err := eng.Fills()
	if err != nil {
		return err
	}
	fmt.Println("\nRound trips:")
	return roundtrip.WriteAnalysisCSV(os.Stdout, roundtrip.Reconcile(fills), eng.StartingCash())
}
