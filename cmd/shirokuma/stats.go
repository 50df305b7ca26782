package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shirokuma-kb/shirokuma/internal/database"
	"github.com/shirokuma-kb/shirokuma/pkg/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print database statistics",
	Run: func(cmd *cobra.Command, args []string) {
		initLogging()
		runStats()
	},
}

func runStats() {
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

	stats, err := db.GetDBStats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading stats: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("path:            %s\n", stats.Path)
	fmt.Printf("schema version:  %d\n", stats.SchemaVersion)
	fmt.Printf("tables:          %d\n", stats.TableCount)
	fmt.Printf("items:           %d\n", stats.ItemCount)
	fmt.Printf("relations:       %d\n", stats.RelationCount)
	fmt.Printf("tags:            %d\n", stats.TagCount)
	fmt.Printf("type defs:       %d\n", stats.TypeCount)
	fmt.Printf("file size:       %d bytes\n", stats.FileSizeBytes)
}
