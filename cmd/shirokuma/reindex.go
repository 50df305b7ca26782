package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shirokuma-kb/shirokuma/internal/database"
	"github.com/shirokuma-kb/shirokuma/internal/engine"
	"github.com/shirokuma-kb/shirokuma/internal/enrich"
	"github.com/shirokuma-kb/shirokuma/pkg/config"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-run the enricher over items with a stale enricher_version",
	Long: `reindex re-enriches every item whose enricher_version doesn't match
the currently running enricher's version. An enricher upgrade does not
trigger this automatically; run it manually after a deploy that bumps
the enricher version.`,
	Run: func(cmd *cobra.Command, args []string) {
		initLogging()
		runReindex()
	},
}

func runReindex() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing schema: %v\n", err)
		os.Exit(1)
	}

	eng := engine.New(db, cfg, enrich.NewDefaultEnricher())

	updated, err := eng.Reindex()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reindexing: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("reindexed %d item(s)\n", updated)
}
