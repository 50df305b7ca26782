package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shirokuma-kb/shirokuma/internal/database"
	"github.com/shirokuma-kb/shirokuma/internal/mcp"
	"github.com/shirokuma-kb/shirokuma/internal/restapi"
	"github.com/shirokuma-kb/shirokuma/pkg/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server over stdio",
	Long: `serve starts the JSON-RPC 2.0 server on stdin/stdout that AI agents
talk to. It blocks until SIGINT/SIGTERM or the peer closes stdin.

When rest_api.enabled is set in config, a read-only HTTP status surface
(internal/restapi) also starts alongside it on rest_api.host:port.`,
	Run: func(cmd *cobra.Command, args []string) {
		initLogging()
		runServe()
	},
}

func runServe() {
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if cfg.RestAPI.Enabled {
		restServer := restapi.NewServer(db, cfg)
		go func() {
			if err := restServer.StartWithContext(ctx, 5*time.Second); err != nil {
				fmt.Fprintf(os.Stderr, "REST API server error: %v\n", err)
			}
		}()
	}

	server := mcp.NewServer(db, cfg)
	if err := server.Run(ctx); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
