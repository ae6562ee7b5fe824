package quote

import (
	"math"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

const (
	QuoteTitle           = "Sourcing Quote"
	FrameFailureTitle    = "Video analysis failed"
	ProcessingErrorTitle = "Processing error"

	frameFailureMessage    = "The video could not be read. Check that the link is public and try again."
	processingErrorMessage = "Something went wrong while preparing the quote. Please try again later."

	maxCardFeatures  = 5
	maxCardFactories = 3
)

// Artifact is everything a quote card is rendered from. It is assembled once
// per run and not changed afterwards.
type Artifact struct {
	RequestID  uuid.UUID
	Persisted  bool
	Analysis   models.ProductAnalysis
	Quote      models.PriceQuote
	Candidates []models.FactoryCandidate
}

// RenderQuoteCard lays out an artifact for the requester.
func RenderQuoteCard(a Artifact) models.QuoteCard {
	features := a.Analysis.Features
	if len(features) > maxCardFeatures {
		features = features[:maxCardFeatures]
	}

	factories := make([]models.FactoryLine, 0, maxCardFactories)
	for i, c := range a.Candidates {
		if i == maxCardFactories {
			break
		}
		factories = append(factories, models.FactoryLine{
			Name:     c.Name,
			Rating:   c.Rating,
			Location: c.Location,
			MOQ:      c.MOQ,
		})
	}

	footer := models.RequestIDUnavailable
	if a.Persisted {
		footer = a.RequestID.String()
	}

	return models.QuoteCard{
		RequestID:    a.RequestID,
		Title:        QuoteTitle,
		ProductName:  a.Analysis.ProductName,
		Features:     append([]string{}, features...),
		UnitPriceUSD: a.Quote.UnitPriceUSD,
		MOQ:          a.Quote.Quantity,
		LeadTimeDays: a.Quote.LeadTimeDays,
		Breakdown:    a.Quote.Breakdown,
		Factories:    factories,
		FactoryCount: len(a.Candidates),
		Confidence:   Meter(a.Analysis.Confidence),
		Advisory:     a.Analysis.Advisory,
		Footer:       footer,
		Synthetic:    a.Analysis.Synthetic(),
	}
}

// Meter renders confidence as filled units out of models.ConfidenceUnits.
// Both figures truncate, so 0.92 is 9 units and 92 percent.
func Meter(confidence float64) models.ConfidenceMeter {
	if math.IsNaN(confidence) || confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return models.ConfidenceMeter{
		Filled:  int(confidence * models.ConfidenceUnits),
		Total:   models.ConfidenceUnits,
		Percent: int(confidence * 100),
	}
}

func frameFailureCard(id uuid.UUID) models.ErrorCard {
	return models.ErrorCard{RequestID: id, Title: FrameFailureTitle, Message: frameFailureMessage}
}

func processingErrorCard(id uuid.UUID) models.ErrorCard {
	return models.ErrorCard{RequestID: id, Title: ProcessingErrorTitle, Message: processingErrorMessage}
}
