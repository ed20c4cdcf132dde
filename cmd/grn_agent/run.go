package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aungkyaw/grn-automation/internal/db"
	"github.com/aungkyaw/grn-automation/internal/observability"
)

var (
	runDocument    string
	runCardinality string
	runSubject     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reconciliation pipeline once for a local document",
	Long: `Creates an automation run for a local invoice document and executes the
pipeline synchronously: session login -> extraction -> GRN fetch and
matching -> validation -> posting. Prints the per-invoice outcome.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVarP(&runDocument, "document", "d", "", "Path to the invoice document (PDF)")
	runCmd.Flags().StringVarP(&runCardinality, "cardinality", "c", "one_to_one", "Document cardinality: one_to_one, one_to_many, or many_to_one")
	runCmd.Flags().StringVar(&runSubject, "subject", "cli", "User subject the run is recorded under")
	_ = runCmd.MarkFlagRequired("document")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer a.close(context.Background())

	run, err := a.db.CreateRun(ctx, runSubject, runDocument, filepath.Base(runDocument), runCardinality)
	if err != nil {
		return err
	}
	if _, err := a.db.RecordStep(ctx, run.ID, db.StepUpload, db.StepStatusSuccess, "document provided on the command line"); err != nil {
		return err
	}
	fmt.Printf("run %s created\n", run.ID)

	execErr := a.orch.Execute(ctx, run.ID)

	printer := observability.NewPrinter(os.Stdout)

	updated, err := a.db.GetRun(ctx, run.ID)
	if err != nil {
		return err
	}
	steps, err := a.db.ListSteps(ctx, run.ID)
	if err != nil {
		return err
	}
	printer.PrintRun(updated, steps)

	results, err := a.db.ListResultsByRun(ctx, run.ID, db.ResultFilter{})
	if err != nil {
		return err
	}
	printer.PrintResults(results)
	return execErr
}
