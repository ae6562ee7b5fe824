package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/kiranshivaraju/quotehunter/internal/api/middleware"
	"github.com/kiranshivaraju/quotehunter/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler         http.HandlerFunc
	TriggerHandler        http.HandlerFunc
	PipelineStatusHandler http.HandlerFunc
	CancelPipelineHandler http.HandlerFunc
	ListRequestsHandler   http.HandlerFunc
	GetRequestHandler     http.HandlerFunc
	ListSuppliersHandler  http.HandlerFunc
	EstimateHandler       http.HandlerFunc
	// StatusStream upgrades to a websocket carrying snapshots and cards.
	StatusStream http.Handler
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Identity)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	if deps.StatusStream != nil {
		r.Handle("/api/v1/ws", deps.StatusStream)
	} else {
		r.Get("/api/v1/ws", orNotImplemented(nil))
	}

	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Post("/api/v1/triggers", orNotImplemented(deps.TriggerHandler))

		r.Get("/api/v1/pipelines/{id}", orNotImplemented(deps.PipelineStatusHandler))
		r.Delete("/api/v1/pipelines/{id}", orNotImplemented(deps.CancelPipelineHandler))

		r.Get("/api/v1/requests", orNotImplemented(deps.ListRequestsHandler))
		r.Get("/api/v1/requests/{id}", orNotImplemented(deps.GetRequestHandler))

		r.Get("/api/v1/suppliers", orNotImplemented(deps.ListSuppliersHandler))
		r.Get("/api/v1/estimate", orNotImplemented(deps.EstimateHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
