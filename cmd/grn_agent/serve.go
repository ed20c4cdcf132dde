package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aungkyaw/grn-automation/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes runs, reconciliation results, posting retries, and stats.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer a.close(context.Background())

	srv := server.New(a.cfg, a.db, a.orch, a.log)
	return srv.Start()
}
