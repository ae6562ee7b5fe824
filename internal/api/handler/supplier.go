package handler

import (
	"net/http"

	"github.com/kiranshivaraju/quotehunter/internal/api/response"
	"github.com/kiranshivaraju/quotehunter/internal/pricing"
	"github.com/kiranshivaraju/quotehunter/internal/store"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

// NewListSuppliersHandler returns an http.HandlerFunc for GET /api/v1/suppliers.
// Only active suppliers are listed, best rated first. q matches the name and
// category matches the primary category label.
func NewListSuppliersHandler(suppliers SupplierLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := listLimit(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		filter := store.NewFilter().
			Eq("status", models.SupplierStatusActive).
			Like("name", q.Get("q")).
			Like("category", pricing.PrimaryLabel(q.Get("category"))).
			Sort("rating").
			Take(limit)

		items, err := suppliers.ListSuppliers(r.Context(), filter)
		if err != nil {
			storeError(w, err)
			return
		}
		response.Collection(w, items, response.ListMeta{Count: len(items), Limit: limit})
	}
}
