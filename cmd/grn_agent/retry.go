package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var retryResultID string

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-post one failed reconciliation result",
	Long: `Rebuilds the invoice payload from the persisted allocation lines with a
fresh vendor reference and posts it again. Results that already posted
are refused.`,
	RunE: runRetry,
}

func init() {
	retryCmd.Flags().StringVarP(&retryResultID, "result", "r", "", "Reconciliation result id")
	_ = retryCmd.MarkFlagRequired("result")
	rootCmd.AddCommand(retryCmd)
}

func runRetry(cmd *cobra.Command, _ []string) error {
	resultID, err := uuid.Parse(retryResultID)
	if err != nil {
		return fmt.Errorf("invalid result id: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer a.close(context.Background())

	result, err := a.orch.RetryPosting(ctx, resultID)
	if err != nil {
		return err
	}
	fmt.Printf("invoice %s posted as doc entry %d (vendor ref %s)\n",
		result.InvoiceNumber, *result.PostedDocEntry, result.VendorRef)
	return nil
}
