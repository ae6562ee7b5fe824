// Package pricing estimates FOB unit prices from a category/complexity cost model.
package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/quotehunter/pkg/models"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidComplexity = errors.New("complexity must be one of low, medium, high")
)

// DefaultCategory is the table row used for categories the table does not know.
const DefaultCategory = "default"

// Coefficients scale the base price into the three cost components.
type Coefficients struct {
	Material decimal.Decimal
	Labor    decimal.Decimal
	Overhead decimal.Decimal
}

// Tier is a quantity threshold and the discount applied at or above it.
type Tier struct {
	MinQuantity int
	Percent     int
}

// Table holds every constant the cost model reads.
// Tiers must be sorted by MinQuantity descending.
type Table struct {
	Categories map[string]Coefficients
	BasePrices map[string]decimal.Decimal
	Tiers      []Tier
	// LeadTimeThreshold splits short and long lead times.
	LeadTimeThreshold int
	ShortLeadTimeDays int
	LongLeadTimeDays  int
}

func coef(material, labor, overhead string) Coefficients {
	return Coefficients{
		Material: decimal.RequireFromString(material),
		Labor:    decimal.RequireFromString(labor),
		Overhead: decimal.RequireFromString(overhead),
	}
}

// DefaultTable returns the built-in illustrative cost table.
func DefaultTable() Table {
	return Table{
		Categories: map[string]Coefficients{
			"Home Appliances":  coef("1.2", "0.8", "0.3"),
			"Electronics":      coef("1.5", "1.0", "0.4"),
			"Textiles":         coef("0.8", "1.2", "0.2"),
			"Plastic Products": coef("0.6", "0.5", "0.2"),
			DefaultCategory:    coef("1.0", "0.8", "0.3"),
		},
		BasePrices: map[string]decimal.Decimal{
			models.ComplexityLow:    decimal.RequireFromString("2.0"),
			models.ComplexityMedium: decimal.RequireFromString("4.0"),
			models.ComplexityHigh:   decimal.RequireFromString("8.0"),
		},
		Tiers: []Tier{
			{MinQuantity: 5000, Percent: 15},
			{MinQuantity: 2000, Percent: 8},
			{MinQuantity: 1000, Percent: 4},
		},
		LeadTimeThreshold: 1000,
		ShortLeadTimeDays: 15,
		LongLeadTimeDays:  25,
	}
}

// Estimator computes price quotes from a Table. It holds no mutable state.
type Estimator struct {
	table Table
}

// NewEstimator creates an Estimator over table.
func NewEstimator(table Table) *Estimator {
	return &Estimator{table: table}
}

// Default returns an Estimator over DefaultTable.
func Default() *Estimator {
	return NewEstimator(DefaultTable())
}

// Estimate returns the quote for quantity units of a product in category at
// the given complexity.
func (e *Estimator) Estimate(category, complexity string, quantity int) (models.PriceQuote, error) {
	if quantity <= 0 {
		return models.PriceQuote{}, fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}
	base, ok := e.table.BasePrices[complexity]
	if !ok {
		return models.PriceQuote{}, fmt.Errorf("%w: got %q", ErrInvalidComplexity, complexity)
	}

	c := e.Coefficients(category)
	material := base.Mul(c.Material)
	labor := base.Mul(c.Labor)
	overhead := base.Mul(c.Overhead)

	pct := e.DiscountPercent(quantity)
	factor := decimal.NewFromInt(1).Sub(decimal.New(int64(pct), -2))
	unit := material.Add(labor).Add(overhead).Mul(factor).Round(2)

	return models.PriceQuote{
		UnitPriceUSD: unit.InexactFloat64(),
		Breakdown: models.CostBreakdown{
			Material: material.Round(2).InexactFloat64(),
			Labor:    labor.Round(2).InexactFloat64(),
			Overhead: overhead.Round(2).InexactFloat64(),
		},
		Quantity:        quantity,
		DiscountPercent: pct,
		LeadTimeDays:    e.LeadTimeDays(quantity),
		Complexity:      complexity,
		Category:        category,
	}, nil
}

// Coefficients looks up the cost coefficients for category. Matching is exact
// first, then case-insensitive on the primary label, so "Home Appliances / 家居电器"
// resolves to "Home Appliances". Unknown categories get the default row.
func (e *Estimator) Coefficients(category string) Coefficients {
	if c, ok := e.table.Categories[category]; ok {
		return c
	}
	primary := PrimaryLabel(category)
	for name, c := range e.table.Categories {
		if strings.EqualFold(name, primary) {
			return c
		}
	}
	return e.table.Categories[DefaultCategory]
}

// DiscountPercent returns the discount tier percentage for quantity.
func (e *Estimator) DiscountPercent(quantity int) int {
	for _, t := range e.table.Tiers {
		if quantity >= t.MinQuantity {
			return t.Percent
		}
	}
	return 0
}

// LeadTimeDays returns the production lead time for quantity.
func (e *Estimator) LeadTimeDays(quantity int) int {
	if quantity < e.table.LeadTimeThreshold {
		return e.table.ShortLeadTimeDays
	}
	return e.table.LongLeadTimeDays
}

// PrimaryLabel returns the part of a bilingual category label before " / ".
func PrimaryLabel(category string) string {
	if i := strings.Index(category, "/"); i >= 0 {
		category = category[:i]
	}
	return strings.TrimSpace(category)
}
