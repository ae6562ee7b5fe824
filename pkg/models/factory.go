package models

import "time"

// MaxMatchCandidates caps how many candidates the matcher returns.
const MaxMatchCandidates = 5

// FactoryCandidate is a manufacturer proposed for a sourcing request.
type FactoryCandidate struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	NameEN         string   `json:"name_en,omitempty"`
	Category       string   `json:"category"`
	MOQ            int      `json:"moq"`
	Rating         float64  `json:"rating"`
	Location       string   `json:"location"`
	Certifications []string `json:"certifications"`
}

// Supplier is a row of the suppliers collection.
type Supplier struct {
	ID             string    `db:"id"             json:"id"`
	Name           string    `db:"name"           json:"name"`
	NameEN         string    `db:"name_en"        json:"name_en,omitempty"`
	Category       string    `db:"category"       json:"category"`
	MOQ            int       `db:"moq"            json:"moq"`
	Rating         float64   `db:"rating"         json:"rating"`
	Location       string    `db:"location"       json:"location"`
	Certifications []string  `db:"certifications" json:"certifications"`
	Status         string    `db:"status"         json:"status"`
	CreatedAt      time.Time `db:"created_at"     json:"created_at"`
}

// SupplierStatusActive marks a supplier eligible for matching.
const SupplierStatusActive = "active"

// Candidate converts a supplier row to a match candidate.
func (s Supplier) Candidate() FactoryCandidate {
	return FactoryCandidate{
		ID:             s.ID,
		Name:           s.Name,
		NameEN:         s.NameEN,
		Category:       s.Category,
		MOQ:            s.MOQ,
		Rating:         s.Rating,
		Location:       s.Location,
		Certifications: s.Certifications,
	}
}
