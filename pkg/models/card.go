package models

import "github.com/google/uuid"

// RequestIDUnavailable is rendered in place of the request identifier when the
// request could not be persisted.
const RequestIDUnavailable = "N/A"

// QuoteCard is the structured quote delivered to the requester.
// Field order follows the order the transport should render them in.
type QuoteCard struct {
	RequestID    uuid.UUID       `json:"-"`
	Title        string          `json:"title"`
	ProductName  string          `json:"product_name"`
	Features     []string        `json:"features"`
	UnitPriceUSD float64         `json:"unit_price_usd"`
	MOQ          int             `json:"moq"`
	LeadTimeDays int             `json:"lead_time_days"`
	Breakdown    CostBreakdown   `json:"breakdown"`
	Factories    []FactoryLine   `json:"factories"`
	FactoryCount int             `json:"factory_count"`
	Confidence   ConfidenceMeter `json:"confidence"`
	Advisory     string          `json:"advisory,omitempty"`
	Footer       string          `json:"footer"`
	Synthetic    bool            `json:"synthetic"`
}

// FactoryLine is one factory row on the quote card.
type FactoryLine struct {
	Name     string  `json:"name"`
	Rating   float64 `json:"rating"`
	Location string  `json:"location"`
	MOQ      int     `json:"moq"`
}

// ConfidenceMeter renders confidence as a bar of up to ConfidenceUnits filled units.
type ConfidenceMeter struct {
	Filled  int `json:"filled"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

// ConfidenceUnits is the number of discrete units in the confidence bar.
const ConfidenceUnits = 10

// ErrorCard is delivered when a pipeline cannot produce a quote.
type ErrorCard struct {
	RequestID uuid.UUID `json:"-"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
}
