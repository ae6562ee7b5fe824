package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/quotehunter/internal/api/response"
	"github.com/kiranshivaraju/quotehunter/internal/store"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

type pipelineView struct {
	RequestID uuid.UUID              `json:"request_id"`
	Status    string                 `json:"status,omitempty"`
	Snapshot  *models.StatusSnapshot `json:"snapshot,omitempty"`
	Card      json.RawMessage        `json:"card,omitempty"`
}

// NewPipelineStatusHandler returns an http.HandlerFunc for
// GET /api/v1/pipelines/{id}. The recorded snapshot wins; once it has expired
// the persisted request status is returned instead.
func NewPipelineStatusHandler(runs RunLookup, requests RequestReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := requestID(w, r)
		if !ok {
			return
		}

		view, found, err := runs.Lookup(r.Context(), id)
		if err != nil {
			slog.Warn("status lookup failed", "request_id", id, "error", err)
		}
		if found {
			snap := view.Snapshot
			response.JSON(w, pipelineView{RequestID: id, Snapshot: &snap, Card: view.Card})
			return
		}

		sr, err := requests.GetSourcingRequest(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Pipeline not found", nil)
			default:
				response.Error(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE",
					"Pipeline status is temporarily unavailable", nil)
			}
			return
		}
		response.JSON(w, pipelineView{RequestID: id, Status: sr.Status})
	}
}

// NewCancelPipelineHandler returns an http.HandlerFunc for
// DELETE /api/v1/pipelines/{id}.
func NewCancelPipelineHandler(runs PipelineCanceller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := requestID(w, r)
		if !ok {
			return
		}
		if !runs.Cancel(id) {
			response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "No active pipeline with this id", nil)
			return
		}
		response.Accepted(w, map[string]string{"request_id": id.String(), "status": "cancelling"})
	}
}
