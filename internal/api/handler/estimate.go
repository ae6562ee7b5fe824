package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/kiranshivaraju/quotehunter/internal/api/response"
	"github.com/kiranshivaraju/quotehunter/internal/pricing"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

// NewEstimateHandler returns an http.HandlerFunc for GET /api/v1/estimate.
// category defaults to the table's default row, complexity to medium and
// quantity to 1000.
func NewEstimateHandler(est PriceEstimator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		complexity := q.Get("complexity")
		if complexity == "" {
			complexity = models.ComplexityMedium
		}
		quantity := 1000
		if raw := q.Get("quantity"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "quantity must be an integer", nil)
				return
			}
			quantity = n
		}

		pq, err := est.Estimate(q.Get("category"), complexity, quantity)
		if err != nil {
			switch {
			case errors.Is(err, pricing.ErrInvalidQuantity), errors.Is(err, pricing.ErrInvalidComplexity):
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}
		response.JSON(w, pq)
	}
}
