package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/jonathan/interview-dispatch/internal/records"
	"github.com/jonathan/interview-dispatch/internal/schemas"
	"github.com/jonathan/interview-dispatch/internal/types"
	embedded "github.com/jonathan/interview-dispatch/schemas"
)

// maxTriggerBody bounds the size of a POST /dispatch body.
const maxTriggerBody = 1 << 20

// DispatchResponse represents the response for POST /dispatch
type DispatchResponse struct {
	Status string                `json:"status"`
	Result *types.DispatchResult `json:"result"`
}

// RecordsResponse represents the response for GET /records
type RecordsResponse struct {
	Records []types.Record `json:"records"`
	Count   int            `json:"count"`
}

// handleSplit runs the splitter over every current master. ?dry_run=true returns the plan only.
func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	dryRun, err := parseBoolParam(r, "dry_run")
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if dryRun {
		plan, err := s.splitter.Preview(r.Context())
		if err != nil {
			log.Printf("Split preview failed: %v", err)
			s.errorResponse(w, HTTPStatus(err), err.Error())
			return
		}
		s.jsonResponse(w, http.StatusOK, map[string]any{
			"dry_run":    true,
			"creates":    plan.Creates,
			"deletes":    plan.Deletes,
			"skipped":    plan.Skipped,
			"duplicates": plan.Duplicates,
		})
		return
	}

	summary, err := s.splitter.Run(r.Context())
	if err != nil {
		log.Printf("Split failed: %v", err)
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, summary)
}

// handleDispatch sends the invitation for one round record.
// This is the webhook the automation host calls for each qualifying record.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTriggerBody+1))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Failed to read request body: "+err.Error())
		return
	}
	if len(body) > maxTriggerBody {
		s.errorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}

	trigger, err := decodeTrigger(body)
	if err != nil {
		s.jsonResponse(w, HTTPStatus(err), map[string]any{"error": err.Error(), "details": errorDetails(err)})
		return
	}

	result, err := s.dispatcher.Dispatch(r.Context(), *trigger)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, DispatchResponse{Status: string(types.DispatchStateSent), Result: result})
}

// handleDispatchPending dispatches every pending round record. Per-record failures are
// reported in the body; the response is 200 unless the pass itself could not run.
func (s *Server) handleDispatchPending(w http.ResponseWriter, r *http.Request) {
	summary, err := s.scheduler.RunPending(r.Context())
	if err != nil && summary == nil {
		log.Printf("Pending dispatch failed: %v", err)
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if err != nil {
		log.Printf("Pending dispatch interrupted: %v", err)
	}
	s.jsonResponse(w, http.StatusOK, summary)
}

// handleListRecords lists records with optional filters:
// ?status=unsplit|split, ?pending=true, ?email=, ?limit=
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q := records.Query{Email: r.URL.Query().Get("email")}

	switch status := types.SplitStatus(r.URL.Query().Get("status")); status {
	case "", types.SplitStatusUnsplit, types.SplitStatusSplit:
		q.Status = status
	default:
		s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid status: %s", status))
		return
	}

	pending, err := parseBoolParam(r, "pending")
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	q.PendingOnly = pending

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			s.errorResponse(w, http.StatusBadRequest, "Invalid limit: "+v)
			return
		}
		q.Limit = limit
	}

	recs, err := s.store.Query(r.Context(), q)
	if err != nil {
		log.Printf("Failed to list records: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to list records")
		return
	}
	if recs == nil {
		recs = []types.Record{}
	}
	s.jsonResponse(w, http.StatusOK, RecordsResponse{Records: recs, Count: len(recs)})
}

// decodeTrigger validates the body against the trigger schema, then decodes and validates it.
func decodeTrigger(body []byte) (*types.Trigger, error) {
	if !json.Valid(body) {
		return nil, &ErrValidation{Message: "request body is not valid JSON"}
	}
	if err := schemas.ValidateDocument(embedded.Trigger, body); err != nil {
		return nil, err
	}

	var t types.Trigger
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, &ErrValidation{Message: "invalid trigger JSON: " + err.Error()}
	}
	if err := t.Validate(); err != nil {
		return nil, &ErrValidation{Field: "trigger", Message: err.Error()}
	}
	return &t, nil
}

func errorDetails(err error) []schemas.FieldError {
	var ve *schemas.ValidationError
	if errors.As(err, &ve) {
		return ve.Errors
	}
	return nil
}

func parseBoolParam(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %s", name, v)
	}
	return b, nil
}
