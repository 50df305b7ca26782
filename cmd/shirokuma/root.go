package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shirokuma-kb/shirokuma/internal/logging"
)

var (
	// Version is set during build.
	Version = "1.0.0"

	// Global flags
	logLevel string
	quiet    bool
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "shirokuma",
	Short: "Local-first knowledge base with MCP server integration",
	Long: `shirokuma stores items (issues, plans, docs, knowledge, sessions,
decisions), enriches them with keywords/concepts/embeddings, and links
them into a relation graph.

Run it as an MCP server for AI agent integration:

  shirokuma serve

Or use it from the shell:

  shirokuma migrate     # create/upgrade the database schema
  shirokuma stats       # print database statistics
  shirokuma reindex     # re-run the enricher over stale items`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log_level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(reindexCmd)
}

func initLogging() {
	level := logLevel
	if quiet {
		level = "error"
	}
	logging.Init(logging.Config{
		Level:  level,
		Format: "text",
		Output: "stderr",
	})
}
