package models

// Complexity levels accepted by the price estimator.
const (
	ComplexityLow    = "low"
	ComplexityMedium = "medium"
	ComplexityHigh   = "high"
)

// CostBreakdown splits a unit price into its three cost components, in USD.
type CostBreakdown struct {
	Material float64 `json:"material"`
	Labor    float64 `json:"labor"`
	Overhead float64 `json:"overhead"`
}

// PriceQuote is an FOB-style unit price estimate.
// UnitPriceUSD == round((Material+Labor+Overhead) * (1 - DiscountPercent/100), 2).
type PriceQuote struct {
	UnitPriceUSD    float64       `json:"unit_price_usd"`
	Breakdown       CostBreakdown `json:"breakdown"`
	Quantity        int           `json:"quantity"`
	DiscountPercent int           `json:"discount_percent"`
	LeadTimeDays    int           `json:"lead_time_days"`
	Complexity      string        `json:"complexity"`
	Category        string        `json:"category"`
}
