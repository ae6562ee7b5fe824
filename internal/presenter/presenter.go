// Package presenter delivers pipeline status and cards to the places a
// requester can see them.
package presenter

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/quotehunter/internal/quote"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

// Event kinds carried in an Envelope.
const (
	KindStatus = "status"
	KindQuote  = "quote"
	KindError  = "error"
)

// Envelope is the wire form shared by the webhook and websocket sinks.
type Envelope struct {
	Kind      string    `json:"kind"`
	RequestID uuid.UUID `json:"request_id"`
	Data      any       `json:"data"`
}

func statusEnvelope(s models.StatusSnapshot) Envelope {
	return Envelope{Kind: KindStatus, RequestID: s.RequestID, Data: s}
}

func quoteEnvelope(c models.QuoteCard) Envelope {
	return Envelope{Kind: KindQuote, RequestID: c.RequestID, Data: c}
}

func errorEnvelope(c models.ErrorCard) Envelope {
	return Envelope{Kind: KindError, RequestID: c.RequestID, Data: c}
}

// Multi fans every call out to all sinks and joins their errors.
type Multi []quote.Presenter

func (m Multi) PublishStatus(ctx context.Context, snap models.StatusSnapshot) error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.PublishStatus(ctx, snap))
	}
	return errors.Join(errs...)
}

func (m Multi) DeliverQuote(ctx context.Context, card models.QuoteCard) error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.DeliverQuote(ctx, card))
	}
	return errors.Join(errs...)
}

func (m Multi) DeliverError(ctx context.Context, card models.ErrorCard) error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.DeliverError(ctx, card))
	}
	return errors.Join(errs...)
}

var _ quote.Presenter = Multi(nil)
