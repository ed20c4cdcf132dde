package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aungkyaw/grn-automation/internal/db"
)

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.loadOwnedResult(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

type updateLineRequest struct {
	DocEntry int             `json:"doc_entry" validate:"required,min=1"`
	LineNum  int             `json:"line_num" validate:"min=0"`
	Quantity decimal.Decimal `json:"quantity"`
}

type updateResultRequest struct {
	InvoiceDate *string             `json:"invoice_date" validate:"omitempty,datetime=2006-01-02"`
	DocDate     *string             `json:"doc_date" validate:"omitempty,datetime=2006-01-02"`
	Lines       []updateLineRequest `json:"lines" validate:"omitempty,min=1,dive"`
}

// handleUpdateResult patches the correctable fields of a result before
// a posting retry. Posted results are immutable.
func (s *Server) handleUpdateResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.loadOwnedResult(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	var req updateResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, &ValidationError{Message: "invalid request body: " + err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, &ValidationError{Message: err.Error()})
		return
	}
	if req.InvoiceDate == nil && req.DocDate == nil && len(req.Lines) == 0 {
		s.respondError(w, &ValidationError{Message: "nothing to update"})
		return
	}

	var lines []db.AllocationLine
	for _, l := range req.Lines {
		if !l.Quantity.IsPositive() {
			s.respondError(w, &ValidationError{Message: "line quantities must be positive"})
			return
		}
		lines = append(lines, db.AllocationLine{
			DocEntry: l.DocEntry,
			LineNum:  l.LineNum,
			Quantity: l.Quantity,
		})
	}

	updated, err := s.db.UpdateResultFields(r.Context(), result.ID, req.InvoiceDate, req.DocDate, lines)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

// handleRetryResult re-posts one failed or pending result. Matching and
// validation are not re-run; the payload comes from the persisted
// allocation lines with a fresh vendor reference.
func (s *Server) handleRetryResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.loadOwnedResult(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if result.PostingStatus == db.PostingStatusPosted {
		s.respondError(w, db.ErrAlreadyPosted)
		return
	}
	if result.ValidationStatus != db.ValidationStatusSuccess {
		s.respondError(w, &ValidationError{Message: "result was not accepted by validation and cannot be posted"})
		return
	}

	updated, err := s.orch.RetryPosting(r.Context(), result.ID)
	if err != nil {
		if errors.Is(err, db.ErrAlreadyPosted) {
			s.respondError(w, err)
			return
		}
		if updated != nil {
			s.respondJSON(w, http.StatusBadGateway, map[string]any{
				"result": updated,
				"error":  err.Error(),
			})
			return
		}
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

// loadOwnedResult fetches a result and enforces the owning run's
// visibility rules.
func (s *Server) loadOwnedResult(r *http.Request) (*db.ReconciliationResult, error) {
	resultID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, &ValidationError{Message: "invalid result id"}
	}

	result, err := s.db.GetResult(r.Context(), resultID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, &NotFoundError{Resource: "result", ID: resultID.String()}
	}
	if _, err := s.loadOwnedRun(r, result.RunID); err != nil {
		return nil, &NotFoundError{Resource: "result", ID: resultID.String()}
	}
	return result, nil
}
