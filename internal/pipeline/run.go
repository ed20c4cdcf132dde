package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/aungkyaw/grn-automation/internal/allocation"
	"github.com/aungkyaw/grn-automation/internal/db"
	"github.com/aungkyaw/grn-automation/internal/extraction"
	"github.com/aungkyaw/grn-automation/internal/matching"
	"github.com/aungkyaw/grn-automation/internal/sap"
	"github.com/aungkyaw/grn-automation/internal/validation"
)

// Execute runs the pipeline for one pending run. Steps execute strictly
// in order and each transition is recorded before the next step begins;
// the first failing step aborts the remainder and marks the run failed.
// Posting is the exception: it runs once per reconciliation result, in
// parallel, and one posting failure does not stop the others.
func (o *Orchestrator) Execute(ctx context.Context, runID uuid.UUID) error {
	run, err := o.store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}
	if err := o.store.MarkRunRunning(ctx, runID); err != nil {
		return err
	}

	log := o.log.WithField("run_id", runID)

	failRun := func(step, message string, cause error) error {
		if _, err := o.store.RecordStep(ctx, runID, step, db.StepStatusFailed, message); err != nil {
			log.WithError(err).Error("failed to record failing step")
		}
		if err := o.store.CompleteRun(ctx, runID, db.RunStatusFailed); err != nil {
			log.WithError(err).Error("failed to mark run failed")
		}
		log.WithField("step", step).WithError(cause).Warn("run failed")
		return cause
	}
	succeed := func(step, message string) error {
		_, err := o.store.RecordStep(ctx, runID, step, db.StepStatusSuccess, message)
		return err
	}

	if _, err := o.erp.EnsureSession(ctx); err != nil {
		return failRun(db.StepSessionLogin, err.Error(), err)
	}
	if err := succeed(db.StepSessionLogin, "erp session established"); err != nil {
		return err
	}

	document, err := o.readDocument(run.DocumentRef)
	if err != nil {
		return failRun(db.StepExtraction, "failed to read stored document: "+err.Error(), err)
	}
	doc, err := o.extractor.ExtractDocument(ctx, document)
	if err != nil {
		return failRun(db.StepExtraction, err.Error(), err)
	}
	if err := succeed(db.StepExtraction,
		fmt.Sprintf("extracted %d invoice(s), target pos: %s", len(doc.Invoices), strings.Join(doc.TargetPOs, ", "))); err != nil {
		return err
	}

	vendorCode := doc.VendorCode
	if vendorCode == "" {
		vendorCode, err = o.erp.LookupVendorCode(ctx, doc.VendorName)
		if err != nil {
			return failRun(db.StepFetchVendorCode, err.Error(), err)
		}
		if err := succeed(db.StepFetchVendorCode, "resolved vendor code "+vendorCode); err != nil {
			return err
		}
	} else {
		if err := succeed(db.StepFetchVendorCode, "vendor code present in document"); err != nil {
			return err
		}
	}

	grns, err := o.erp.FetchOpenGRNs(ctx, vendorCode)
	if err != nil {
		return failRun(db.StepFetchOpenGRN, err.Error(), err)
	}
	if err := succeed(db.StepFetchOpenGRN, fmt.Sprintf("fetched %d open grn(s)", len(grns))); err != nil {
		return err
	}

	matched, err := matching.Match(vendorCode, doc.TargetPOs, grns)
	if err != nil {
		return failRun(db.StepFilterGRN, err.Error(), err)
	}
	if err := succeed(db.StepFilterGRN, fmt.Sprintf("matched %d grn(s)", len(matched))); err != nil {
		return err
	}

	cardinality := extraction.Cardinality(run.Cardinality)
	if !cardinality.Valid() {
		cardinality = doc.Cardinality
	}

	decisions, err := o.gateway.Validate(ctx, validation.Request{
		VendorCode:  vendorCode,
		Cardinality: cardinality,
		MatchedGRNs: matched,
		Invoices:    doc.Invoices,
	})
	if err != nil {
		return failRun(db.StepValidation, err.Error(), err)
	}

	matchedGRNs := make([]sap.OpenGRN, 0, len(matched))
	for _, m := range matched {
		matchedGRNs = append(matchedGRNs, m.GRN)
	}

	var toPost []*db.ReconciliationResult
	for _, decision := range decisions {
		input := resultInputFromDecision(decision, vendorCode, matchedGRNs)
		result, err := o.store.CreateResult(ctx, runID, input)
		if err != nil {
			return failRun(db.StepValidation, "failed to persist reconciliation result: "+err.Error(), err)
		}
		if result.ValidationStatus == db.ValidationStatusSuccess {
			toPost = append(toPost, result)
		}
	}

	if len(toPost) == 0 {
		rejected := &validation.RejectedError{Decisions: decisions}
		return failRun(db.StepValidation, rejected.Error(), rejected)
	}
	if err := succeed(db.StepValidation,
		fmt.Sprintf("%d of %d invoice(s) accepted", len(toPost), len(decisions))); err != nil {
		return err
	}

	// Each result is independently idempotent through its unique vendor
	// reference, so postings may run in parallel. Goroutines record
	// their outcome instead of returning an error; a failed posting
	// must not cancel its siblings.
	outcomes := make([]postOutcome, len(toPost))
	group := new(errgroup.Group)
	group.SetLimit(o.postParallelism)
	for i, result := range toPost {
		i, result := i, result
		group.Go(func() error {
			outcomes[i] = o.postOne(ctx, result)
			return nil
		})
	}
	_ = group.Wait()

	allPosted := true
	for _, outcome := range outcomes {
		status := db.StepStatusSuccess
		if !outcome.posted {
			status = db.StepStatusFailed
			allPosted = false
		}
		if _, err := o.store.RecordStep(ctx, runID, db.StepPosted, status, outcome.message); err != nil {
			return err
		}
	}

	finalStatus := db.RunStatusCompleted
	if !allPosted {
		finalStatus = db.RunStatusFailed
	}
	if err := o.store.CompleteRun(ctx, runID, finalStatus); err != nil {
		return err
	}
	log.WithField("status", finalStatus).Info("run finished")

	if !allPosted {
		return fmt.Errorf("run %s: not every invoice posted", runID)
	}
	return nil
}

type postOutcome struct {
	posted  bool
	message string
}

func (o *Orchestrator) postOne(ctx context.Context, result *db.ReconciliationResult) postOutcome {
	payload, err := buildPayloadFromResult(result)
	if err != nil {
		if dbErr := o.store.UpdatePosting(ctx, result.ID, db.PostingStatusFailed, err.Error(), "", nil); dbErr != nil {
			o.log.WithError(dbErr).Error("failed to record posting outcome")
		}
		return postOutcome{message: fmt.Sprintf("invoice %s: %v", result.InvoiceNumber, err)}
	}

	posted, err := o.erp.PostInvoice(ctx, payload)
	if err != nil {
		if dbErr := o.store.UpdatePosting(ctx, result.ID, db.PostingStatusFailed, err.Error(), payload.NumAtCard, nil); dbErr != nil {
			o.log.WithError(dbErr).Error("failed to record posting outcome")
		}
		return postOutcome{message: fmt.Sprintf("invoice %s: %v", result.InvoiceNumber, err)}
	}

	docEntry := posted.DocEntry
	if dbErr := o.store.UpdatePosting(ctx, result.ID, db.PostingStatusPosted, "posted", payload.NumAtCard, &docEntry); dbErr != nil {
		o.log.WithError(dbErr).Error("failed to record posting outcome")
	}
	return postOutcome{
		posted:  true,
		message: fmt.Sprintf("invoice %s posted as doc entry %d", result.InvoiceNumber, posted.DocEntry),
	}
}

// resultInputFromDecision turns one validation decision into the
// persisted reconciliation result. Accepted decisions are re-verified
// through the allocation builder; a proposal the builder rejects is
// recorded as a failed validation, never posted.
func resultInputFromDecision(decision validation.Decision, vendorCode string, grns []sap.OpenGRN) db.ResultInput {
	input := db.ResultInput{
		InvoiceNumber: decision.InvoiceNumber,
		InvoiceDate:   decision.InvoiceDate,
		VendorCode:    vendorCode,
		Message:       decision.Reasoning,
	}

	switch decision.Status {
	case validation.StatusSuccess:
		proposals := make([]allocation.Proposal, 0, len(decision.Proposals))
		for _, p := range decision.Proposals {
			proposals = append(proposals, p.ToAllocation())
		}
		if _, err := allocation.Build(proposals, grns); err != nil {
			input.ValidationStatus = db.ValidationStatusFailed
			input.Message = err.Error()
			return input
		}

		first := decision.Proposals[0]
		input.ValidationStatus = db.ValidationStatusSuccess
		input.DocEntry = first.DocEntry
		input.DocDate = first.DocDate
		if input.DocDate == "" {
			input.DocDate = decision.InvoiceDate
		}
		input.BranchID = first.BranchID
		input.Lines = linesFromProposals(decision.Proposals, grns)
	case validation.StatusRequiresReview:
		input.ValidationStatus = db.ValidationStatusPartial
	default:
		input.ValidationStatus = db.ValidationStatusFailed
	}
	return input
}

func linesFromProposals(proposals []validation.Proposal, grns []sap.OpenGRN) []db.AllocationLine {
	byEntry := make(map[int]*sap.OpenGRN, len(grns))
	for i := range grns {
		byEntry[grns[i].DocEntry] = &grns[i]
	}

	var lines []db.AllocationLine
	for _, p := range proposals {
		for _, l := range p.Lines {
			unitPrice := decimal.Zero
			if grn := byEntry[p.DocEntry]; grn != nil {
				if grnLine := grn.Line(l.LineNum); grnLine != nil {
					unitPrice = grnLine.UnitPrice
				}
			}
			lines = append(lines, db.AllocationLine{
				DocEntry:  p.DocEntry,
				LineNum:   l.LineNum,
				Quantity:  l.Quantity,
				UnitPrice: unitPrice,
			})
		}
	}
	return lines
}
