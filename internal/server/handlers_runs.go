package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/aungkyaw/grn-automation/internal/db"
	"github.com/aungkyaw/grn-automation/internal/server/middleware"
)

// maxUploadBytes bounds the size of a submitted invoice document.
const maxUploadBytes = 32 << 20

type createRunRequest struct {
	Document    string `json:"document" validate:"required"`
	Filename    string `json:"filename" validate:"required"`
	Cardinality string `json:"cardinality" validate:"required,oneof=one_to_one one_to_many many_to_one"`
}

// parseRunSubmission accepts either a multipart form with a "document"
// file and a "cardinality" field, or a JSON body with the document
// base64 encoded.
func (s *Server) parseRunSubmission(r *http.Request) (document []byte, filename, cardinality string, err error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, "", "", &ValidationError{Message: "invalid multipart form: " + err.Error()}
		}
		file, header, err := r.FormFile("document")
		if err != nil {
			return nil, "", "", &ValidationError{Message: "multipart form needs a document file"}
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			return nil, "", "", fmt.Errorf("failed to read uploaded document: %w", err)
		}
		cardinality := r.FormValue("cardinality")
		switch cardinality {
		case "one_to_one", "one_to_many", "many_to_one":
		default:
			return nil, "", "", &ValidationError{Message: "cardinality must be one_to_one, one_to_many, or many_to_one"}
		}
		return data, header.Filename, cardinality, nil
	}

	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, "", "", &ValidationError{Message: "invalid request body: " + err.Error()}
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, "", "", &ValidationError{Message: err.Error()}
	}
	data, err := base64.StdEncoding.DecodeString(req.Document)
	if err != nil {
		return nil, "", "", &ValidationError{Message: "document must be base64 encoded"}
	}
	return data, req.Filename, req.Cardinality, nil
}

// handleCreateRun stores the uploaded document, creates a pending run,
// and kicks off the pipeline in the background. The response returns
// immediately; progress is observable through the run's step history.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r)
	if !ok {
		s.respondError(w, &ValidationError{Message: "no caller identity"})
		return
	}

	document, rawFilename, cardinality, err := s.parseRunSubmission(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if len(document) == 0 {
		s.respondError(w, &ValidationError{Message: "document is empty"})
		return
	}

	filename := filepath.Base(rawFilename)
	ref := filepath.Join(s.cfg.UploadDir, uuid.NewString()+"_"+filename)
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		s.respondError(w, fmt.Errorf("failed to create upload directory: %w", err))
		return
	}
	if err := os.WriteFile(ref, document, 0o644); err != nil {
		s.respondError(w, fmt.Errorf("failed to store document: %w", err))
		return
	}

	run, err := s.db.CreateRun(r.Context(), identity.Subject, ref, filename, cardinality)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if _, err := s.db.RecordStep(r.Context(), run.ID, db.StepUpload, db.StepStatusSuccess,
		fmt.Sprintf("stored %s (%d bytes)", filename, len(document))); err != nil {
		s.respondError(w, err)
		return
	}

	go func() {
		// The run outlives the request; failures land in the step
		// history and the run status.
		_ = s.orch.Execute(context.Background(), run.ID)
	}()

	s.respondJSON(w, http.StatusCreated, map[string]any{
		"run_id": run.ID,
		"status": run.Status,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r)
	if !ok {
		s.respondError(w, &ValidationError{Message: "no caller identity"})
		return
	}

	status := r.URL.Query().Get("status")
	switch status {
	case "", db.RunStatusPending, db.RunStatusRunning, db.RunStatusCompleted, db.RunStatusFailed:
	default:
		s.respondError(w, &ValidationError{Message: "unknown run status " + status})
		return
	}

	runs, err := s.db.ListRuns(r.Context(), identity.Subject, status)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.respondError(w, &ValidationError{Message: "invalid run id"})
		return
	}

	run, err := s.loadOwnedRun(r, runID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	steps, err := s.db.ListSteps(r.Context(), runID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"run": run, "steps": steps})
}

func (s *Server) handleListRunResults(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.respondError(w, &ValidationError{Message: "invalid run id"})
		return
	}
	if _, err := s.loadOwnedRun(r, runID); err != nil {
		s.respondError(w, err)
		return
	}

	filter := db.ResultFilter{
		PostingStatus:    r.URL.Query().Get("posting_status"),
		ValidationStatus: r.URL.Query().Get("validation_status"),
	}
	switch filter.PostingStatus {
	case "", db.PostingStatusPending, db.PostingStatusPosted, db.PostingStatusFailed:
	default:
		s.respondError(w, &ValidationError{Message: "unknown posting status " + filter.PostingStatus})
		return
	}
	switch filter.ValidationStatus {
	case "", db.ValidationStatusSuccess, db.ValidationStatusFailed, db.ValidationStatusPartial:
	default:
		s.respondError(w, &ValidationError{Message: "unknown validation status " + filter.ValidationStatus})
		return
	}

	results, err := s.db.ListResultsByRun(r.Context(), runID, filter)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

// loadOwnedRun fetches a run and enforces visibility. A run belonging
// to someone else reads as not found rather than forbidden.
func (s *Server) loadOwnedRun(r *http.Request, runID uuid.UUID) (*db.Run, error) {
	identity, ok := middleware.GetIdentity(r)
	if !ok {
		return nil, &ValidationError{Message: "no caller identity"}
	}

	run, err := s.db.GetRun(r.Context(), runID)
	if err != nil {
		return nil, err
	}
	if run == nil || (run.UserSubject != identity.Subject && !identity.Staff) {
		return nil, &NotFoundError{Resource: "run", ID: runID.String()}
	}
	return run, nil
}
