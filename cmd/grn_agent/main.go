// Package main provides the entry point for the GRN automation service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "grn_agent",
	Short: "GRN reconciliation and AP invoice posting service",
	Long:  "grn_agent reconciles supplier invoices against open goods receipt notes in the ERP and posts matching AP invoices, either as a long-running HTTP service or as one-shot pipeline runs.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
