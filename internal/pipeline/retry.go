package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aungkyaw/grn-automation/internal/db"
)

// RetryPosting re-posts one failed or pending reconciliation result.
// The payload is rebuilt from the persisted result and its allocation
// lines, with a fresh vendor reference; matching and validation are not
// re-run. Refuses to act on a result that already posted.
func (o *Orchestrator) RetryPosting(ctx context.Context, resultID uuid.UUID) (*db.ReconciliationResult, error) {
	result, err := o.store.GetResult(ctx, resultID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("result %s not found", resultID)
	}
	if result.PostingStatus == db.PostingStatusPosted {
		return nil, db.ErrAlreadyPosted
	}
	if result.ValidationStatus != db.ValidationStatusSuccess {
		return nil, fmt.Errorf("result %s was not accepted by validation and cannot be posted", resultID)
	}

	outcome := o.postOne(ctx, result)

	stepStatus := db.StepStatusSuccess
	if !outcome.posted {
		stepStatus = db.StepStatusFailed
	}
	if _, err := o.store.RecordStep(ctx, result.RunID, db.StepPosted, stepStatus, "retry: "+outcome.message); err != nil {
		o.log.WithError(err).Error("failed to record retry step")
	}

	updated, err := o.store.GetResult(ctx, resultID)
	if err != nil {
		return nil, err
	}
	if !outcome.posted {
		return updated, fmt.Errorf("retry failed: %s", outcome.message)
	}
	return updated, nil
}
