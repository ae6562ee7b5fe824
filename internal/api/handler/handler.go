// Package handler holds the HTTP handlers behind the quotehunter API. Each
// handler depends on the narrowest interface it needs.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/quotehunter/internal/api/response"
	"github.com/kiranshivaraju/quotehunter/internal/matcher"
	"github.com/kiranshivaraju/quotehunter/internal/presenter"
	"github.com/kiranshivaraju/quotehunter/internal/quote"
	"github.com/kiranshivaraju/quotehunter/internal/store"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

// PipelineStarter starts a quote pipeline in the background.
type PipelineStarter interface {
	Start(ctx context.Context, t quote.Trigger) (uuid.UUID, error)
}

type PipelineCanceller interface {
	Cancel(id uuid.UUID) bool
}

// RunLookup returns the latest recorded status of a pipeline run.
type RunLookup interface {
	Lookup(ctx context.Context, id uuid.UUID) (presenter.RunView, bool, error)
}

type RequestReader interface {
	GetSourcingRequest(ctx context.Context, id uuid.UUID) (*models.SourcingRequest, error)
	ListSourcingRequests(ctx context.Context, filter store.Filter) ([]*models.SourcingRequest, error)
}

type SupplierLister interface {
	ListSuppliers(ctx context.Context, filter store.Filter) ([]*models.Supplier, error)
}

// FactorySearcher is satisfied by *matcher.Matcher.
type FactorySearcher interface {
	Match(ctx context.Context, keywords, category string) matcher.MatchResult
}

type PriceEstimator interface {
	Estimate(category, complexity string, quantity int) (models.PriceQuote, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// requestID parses the {id} path parameter, writing a 400 when it is not a UUID.
func requestID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "id must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}
