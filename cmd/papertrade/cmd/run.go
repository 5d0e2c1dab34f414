package cmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/config"
	"github.com/rustyeddy/papertrade/engine"
	"github.com/rustyeddy/papertrade/feed"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/server"
	"github.com/rustyeddy/papertrade/snapshot"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Serve a paper-trading session from a config file",
	Long: `Start a paper-trading session: restore the latest snapshot (or seed a
fresh account), optionally replay a tick file, and serve the REST and
websocket API for the browser client.

Example:
  papertrade run -f examples/configs/session.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.LoadEnv()

	var j journal.Journal
	if cfg.Journal.Type == "sqlite" {
		j, err = journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
	} else {
		j = journal.NewMemory()
	}
	defer j.Close()

	startingCash, err := cfg.Account.ParseStartingCash()
	if err != nil {
		return fmt.Errorf("starting cash: %w", err)
	}
	eng := engine.New(startingCash, j)

	store, err := snapshot.NewStore(cfg.Snapshot.DBPath)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer store.Close()

	srv := server.New(eng, store, cfg.Server.AllowedOrigins)

	rec, found, err := store.LoadLatest()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if found {
		if err := eng.Restore(rec.State); err != nil {
			return fmt.Errorf("restore snapshot: %w", err)
		}
		srv.SetWatchlist(rec.Watchlist)
		log.WithFields(log.Fields{
			"saved_at": rec.SavedAt,
			"fills":    len(rec.State.Fills),
		}).Info("session restored from snapshot")
	} else {
		srv.SetWatchlist(cfg.Feed.Symbols)
		log.Info("starting fresh session")
	}

	if cfg.Feed.ReplayFile != "" {
		ticks, err := feed.LoadCSV(cfg.Feed.ReplayFile)
		if err != nil {
			return fmt.Errorf("load replay file: %w", err)
		}
		replay := &feed.Replay{Ticks: ticks}
		if err := replay.Run(context.Background(), func(t market.Tick) error {
			_, err := eng.OnPriceTick(t)
			return err
		}); err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		log.WithField("ticks", len(ticks)).Info("replay complete")
	}

	return srv.Start(cfg.Server.Addr)
}
