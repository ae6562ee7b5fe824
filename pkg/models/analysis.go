package models

// Sourcing difficulty levels reported by the analysis.
const (
	DifficultyLow    = "low"
	DifficultyMedium = "medium"
	DifficultyHigh   = "high"
)

// Provenance records where a ProductAnalysis came from, so callers can tell
// a real model answer from a synthetic one.
type Provenance string

const (
	ProvenanceVision   Provenance = "vision"
	ProvenanceUnparsed Provenance = "unparsed"
	ProvenanceDemo     Provenance = "demo"
)

// ProductAnalysis describes the product identified in a reference video.
type ProductAnalysis struct {
	ProductName         string     `json:"product_name"`
	Category            string     `json:"category"`
	Features            []string   `json:"features"`
	Materials           []string   `json:"materials"`
	EstimatedDimensions string     `json:"estimated_dimensions,omitempty"`
	TargetAudience      string     `json:"target_audience,omitempty"`
	SellingPoints       []string   `json:"selling_points,omitempty"`
	EstimatedPriceRange string     `json:"estimated_price_range,omitempty"`
	SourcingDifficulty  string     `json:"sourcing_difficulty"`
	Confidence          float64    `json:"confidence"`
	Advisory            string     `json:"sourcing_advice,omitempty"`
	RawText             string     `json:"raw_text"`
	Provenance          Provenance `json:"provenance"`
}

// Synthetic reports whether the analysis was substituted rather than produced
// by the vision service.
func (a ProductAnalysis) Synthetic() bool {
	return a.Provenance == ProvenanceDemo
}
