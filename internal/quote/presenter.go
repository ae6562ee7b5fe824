// Package quote runs the sourcing pipeline for one trigger and renders the
// resulting quote or error card.
package quote

import (
	"context"

	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

// Presenter receives everything the pipeline shows to the requester.
// Implementations must be safe for concurrent use; errors are logged by the
// caller and never stop a pipeline.
type Presenter interface {
	PublishStatus(ctx context.Context, snap models.StatusSnapshot) error
	DeliverQuote(ctx context.Context, card models.QuoteCard) error
	DeliverError(ctx context.Context, card models.ErrorCard) error
}

// Discard is a Presenter that drops everything.
type Discard struct{}

func (Discard) PublishStatus(context.Context, models.StatusSnapshot) error { return nil }
func (Discard) DeliverQuote(context.Context, models.QuoteCard) error       { return nil }
func (Discard) DeliverError(context.Context, models.ErrorCard) error       { return nil }
