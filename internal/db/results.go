package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrAlreadyPosted is returned by mutations that target a result whose
// posting already succeeded. Posted results are immutable.
var ErrAlreadyPosted = errors.New("reconciliation result is already posted")

const resultColumns = `id, run_id, invoice_number, invoice_date, vendor_code, doc_entry, doc_date,
	branch_id, validation_status, message, posting_status, posting_message, vendor_ref,
	posted_doc_entry, created_at, updated_at`

func scanResult(row pgx.Row) (*ReconciliationResult, error) {
	var r ReconciliationResult
	err := row.Scan(&r.ID, &r.RunID, &r.InvoiceNumber, &r.InvoiceDate, &r.VendorCode,
		&r.DocEntry, &r.DocDate, &r.BranchID, &r.ValidationStatus, &r.Message,
		&r.PostingStatus, &r.PostingMessage, &r.VendorRef, &r.PostedDocEntry,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateResult records one reconciliation result and its allocation
// lines atomically. The result starts with posting_status pending.
func (db *DB) CreateResult(ctx context.Context, runID uuid.UUID, input ResultInput) (*ReconciliationResult, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`INSERT INTO reconciliation_results
		   (run_id, invoice_number, invoice_date, vendor_code, doc_entry, doc_date,
		    branch_id, validation_status, message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+resultColumns,
		runID, input.InvoiceNumber, input.InvoiceDate, input.VendorCode, input.DocEntry,
		input.DocDate, input.BranchID, input.ValidationStatus, input.Message,
	)
	result, err := scanResult(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create result: %w", err)
	}

	for _, line := range input.Lines {
		var saved AllocationLine
		err := tx.QueryRow(ctx,
			`INSERT INTO allocation_lines (result_id, doc_entry, line_num, quantity, unit_price)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, result_id, doc_entry, line_num, quantity, unit_price`,
			result.ID, line.DocEntry, line.LineNum, line.Quantity, line.UnitPrice,
		).Scan(&saved.ID, &saved.ResultID, &saved.DocEntry, &saved.LineNum, &saved.Quantity, &saved.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("failed to create allocation line: %w", err)
		}
		result.Lines = append(result.Lines, saved)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit result: %w", err)
	}
	return result, nil
}

// GetResult retrieves one result with its allocation lines. Returns
// (nil, nil) when no result exists.
func (db *DB) GetResult(ctx context.Context, resultID uuid.UUID) (*ReconciliationResult, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM reconciliation_results WHERE id = $1`, resultID)
	result, err := scanResult(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	result.Lines, err = db.listLines(ctx, resultID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (db *DB) listLines(ctx context.Context, resultID uuid.UUID) ([]AllocationLine, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, result_id, doc_entry, line_num, quantity, unit_price
		 FROM allocation_lines WHERE result_id = $1 ORDER BY doc_entry, line_num`,
		resultID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocation lines: %w", err)
	}
	defer rows.Close()

	var lines []AllocationLine
	for rows.Next() {
		var line AllocationLine
		if err := rows.Scan(&line.ID, &line.ResultID, &line.DocEntry, &line.LineNum, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// ListResultsByRun retrieves a run's results in creation order,
// optionally filtered by posting or validation status.
func (db *DB) ListResultsByRun(ctx context.Context, runID uuid.UUID, filter ResultFilter) ([]ReconciliationResult, error) {
	query := `SELECT ` + resultColumns + ` FROM reconciliation_results WHERE run_id = $1`
	args := []interface{}{runID}
	argPos := 2

	if filter.PostingStatus != "" {
		query += fmt.Sprintf(" AND posting_status = $%d", argPos)
		args = append(args, filter.PostingStatus)
		argPos++
	}
	if filter.ValidationStatus != "" {
		query += fmt.Sprintf(" AND validation_status = $%d", argPos)
		args = append(args, filter.ValidationStatus)
	}
	query += " ORDER BY created_at, id"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []ReconciliationResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	return results, rows.Err()
}

// UpdatePosting records one posting attempt's outcome. It refuses to
// touch a result that is already posted.
func (db *DB) UpdatePosting(ctx context.Context, resultID uuid.UUID, status, message, vendorRef string, postedDocEntry *int) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE reconciliation_results
		 SET posting_status = $1, posting_message = $2, vendor_ref = $3,
		     posted_doc_entry = $4, updated_at = NOW()
		 WHERE id = $5 AND posting_status <> 'posted'`,
		status, message, vendorRef, postedDocEntry, resultID,
	)
	if err != nil {
		return fmt.Errorf("failed to update posting outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		existing, err := db.GetResult(ctx, resultID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("result %s not found", resultID)
		}
		return ErrAlreadyPosted
	}
	return nil
}

// UpdateResultFields patches an unposted result's editable fields and,
// when lines are given, replaces its allocation lines.
func (db *DB) UpdateResultFields(ctx context.Context, resultID uuid.UUID, invoiceDate, docDate *string, lines []AllocationLine) (*ReconciliationResult, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE reconciliation_results
		 SET invoice_date = COALESCE($1, invoice_date),
		     doc_date = COALESCE($2, doc_date),
		     updated_at = NOW()
		 WHERE id = $3 AND posting_status <> 'posted'`,
		invoiceDate, docDate, resultID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		existing, err := db.GetResult(ctx, resultID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, nil
		}
		return nil, ErrAlreadyPosted
	}

	if lines != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM allocation_lines WHERE result_id = $1`, resultID); err != nil {
			return nil, fmt.Errorf("failed to replace allocation lines: %w", err)
		}
		for _, line := range lines {
			_, err := tx.Exec(ctx,
				`INSERT INTO allocation_lines (result_id, doc_entry, line_num, quantity, unit_price)
				 VALUES ($1, $2, $3, $4, $5)`,
				resultID, line.DocEntry, line.LineNum, line.Quantity, line.UnitPrice,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to replace allocation lines: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit result update: %w", err)
	}
	return db.GetResult(ctx, resultID)
}

// GetStats aggregates run and posting outcomes over the trailing
// window. Staff callers see totals across all users.
func (db *DB) GetStats(ctx context.Context, userSubject string, staff bool, days int) (*Stats, error) {
	if days <= 0 {
		days = 30
	}
	stats := Stats{Days: days}

	userFilter := ` AND user_subject = $2`
	args := []interface{}{days, userSubject}
	if staff {
		userFilter = ""
		args = args[:1]
	}

	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'completed'),
		        COUNT(*) FILTER (WHERE status = 'failed')
		 FROM automation_runs
		 WHERE created_at >= NOW() - make_interval(days => $1)`+userFilter,
		args...,
	).Scan(&stats.TotalRuns, &stats.CompletedRuns, &stats.FailedRuns)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate run stats: %w", err)
	}

	err = db.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE r.posting_status = 'posted'),
		        COUNT(*) FILTER (WHERE r.posting_status = 'failed')
		 FROM reconciliation_results r
		 JOIN automation_runs a ON a.id = r.run_id
		 WHERE r.created_at >= NOW() - make_interval(days => $1)`+
			replaceUserFilter(userFilter),
		args...,
	).Scan(&stats.TotalInvoices, &stats.PostedCount, &stats.FailedCount)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate invoice stats: %w", err)
	}

	return &stats, nil
}

func replaceUserFilter(filter string) string {
	if filter == "" {
		return ""
	}
	return ` AND a.user_subject = $2`
}
