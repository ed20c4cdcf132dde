// Package pipeline orchestrates one automation run: session login,
// document extraction, GRN fetch and matching, validation, and invoice
// posting, with every transition durably recorded.
package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aungkyaw/grn-automation/internal/allocation"
	"github.com/aungkyaw/grn-automation/internal/db"
	"github.com/aungkyaw/grn-automation/internal/extraction"
	"github.com/aungkyaw/grn-automation/internal/sap"
	"github.com/aungkyaw/grn-automation/internal/validation"
)

// Store is the audit persistence the orchestrator needs.
type Store interface {
	GetRun(ctx context.Context, runID uuid.UUID) (*db.Run, error)
	MarkRunRunning(ctx context.Context, runID uuid.UUID) error
	CompleteRun(ctx context.Context, runID uuid.UUID, status string) error
	RecordStep(ctx context.Context, runID uuid.UUID, name, status, message string) (*db.Step, error)
	CreateResult(ctx context.Context, runID uuid.UUID, input db.ResultInput) (*db.ReconciliationResult, error)
	GetResult(ctx context.Context, resultID uuid.UUID) (*db.ReconciliationResult, error)
	UpdatePosting(ctx context.Context, resultID uuid.UUID, status, message, vendorRef string, postedDocEntry *int) error
}

// ERP is the slice of the ERP client the orchestrator uses.
type ERP interface {
	EnsureSession(ctx context.Context) (string, error)
	LookupVendorCode(ctx context.Context, vendorName string) (string, error)
	FetchOpenGRNs(ctx context.Context, vendorCode string) ([]sap.OpenGRN, error)
	PostInvoice(ctx context.Context, payload sap.InvoicePayload) (*sap.PostedInvoice, error)
}

// Orchestrator drives the pipeline state machine for automation runs.
type Orchestrator struct {
	store     Store
	erp       ERP
	gateway   validation.Gateway
	extractor extraction.Extractor
	log       *logrus.Entry

	// readDocument loads the stored source document by reference.
	// Overridable in tests.
	readDocument func(ref string) ([]byte, error)

	// postParallelism bounds concurrent invoice postings within a run.
	postParallelism int
}

// New creates an orchestrator.
func New(store Store, erp ERP, gateway validation.Gateway, extractor extraction.Extractor, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		store:           store,
		erp:             erp,
		gateway:         gateway,
		extractor:       extractor,
		log:             log.WithField("component", "pipeline"),
		readDocument:    os.ReadFile,
		postParallelism: 4,
	}
}

// buildPayloadFromResult rebuilds an invoice payload from a persisted
// reconciliation result and its allocation lines, stamping a fresh
// vendor reference. Used for first posting and for retries alike, so
// both paths post exactly what was persisted.
func buildPayloadFromResult(result *db.ReconciliationResult) (sap.InvoicePayload, error) {
	if len(result.Lines) == 0 {
		return sap.InvoicePayload{}, fmt.Errorf("result %s has no allocation lines", result.ID)
	}
	payload := sap.InvoicePayload{
		CardCode:  result.VendorCode,
		DocDate:   result.DocDate,
		NumAtCard: allocation.NewVendorRef(result.VendorCode),
		BranchID:  result.BranchID,
	}
	for _, line := range result.Lines {
		payload.Lines = append(payload.Lines,
			sap.NewInvoiceLine(line.DocEntry, line.LineNum, line.Quantity, line.UnitPrice))
	}
	return payload, nil
}
