package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/kiranshivaraju/quotehunter/internal/api/response"
	"github.com/kiranshivaraju/quotehunter/internal/store"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// NewListRequestsHandler returns an http.HandlerFunc for GET /api/v1/requests.
// Supported query parameters: user_id, status, limit.
func NewListRequestsHandler(requests RequestReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := listLimit(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		filter := store.NewFilter().Sort("created_at").Take(limit)
		if v := q.Get("user_id"); v != "" {
			filter = filter.Eq("user_id", v)
		}
		if v := q.Get("status"); v != "" {
			filter = filter.Eq("status", v)
		}

		items, err := requests.ListSourcingRequests(r.Context(), filter)
		if err != nil {
			storeError(w, err)
			return
		}
		response.Collection(w, items, response.ListMeta{Count: len(items), Limit: limit})
	}
}

// NewGetRequestHandler returns an http.HandlerFunc for GET /api/v1/requests/{id}.
func NewGetRequestHandler(requests RequestReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := requestID(w, r)
		if !ok {
			return
		}
		sr, err := requests.GetSourcingRequest(r.Context(), id)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, sr)
	}
}

func listLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxListLimit {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
			"limit must be an integer between 1 and 100", nil)
		return 0, false
	}
	return n, true
}

func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, store.ErrInvalidFilter):
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case errors.Is(err, store.ErrUnavailable):
		response.Error(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE",
			"The store is temporarily unavailable", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
