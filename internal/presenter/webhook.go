package presenter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kiranshivaraju/quotehunter/internal/quote"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

// ErrDeliveryFailed is returned when the transport endpoint rejects an event.
var ErrDeliveryFailed = errors.New("transport delivery failed")

// Webhook posts every event as JSON to the chat transport's endpoint,
// authenticated with the transport token.
type Webhook struct {
	client *resty.Client
	url    string
}

func NewWebhook(url, token string, timeout time.Duration) *Webhook {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetAuthToken(token)
	client.SetHeader("Content-Type", "application/json")
	client.SetRetryCount(2)
	client.SetRetryWaitTime(200 * time.Millisecond)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= 500
	})
	return &Webhook{client: client, url: url}
}

func (w *Webhook) PublishStatus(ctx context.Context, snap models.StatusSnapshot) error {
	return w.post(ctx, statusEnvelope(snap))
}

func (w *Webhook) DeliverQuote(ctx context.Context, card models.QuoteCard) error {
	return w.post(ctx, quoteEnvelope(card))
}

func (w *Webhook) DeliverError(ctx context.Context, card models.ErrorCard) error {
	return w.post(ctx, errorEnvelope(card))
}

func (w *Webhook) post(ctx context.Context, env Envelope) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(env).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDeliveryFailed, env.Kind, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: %s: status %d", ErrDeliveryFailed, env.Kind, resp.StatusCode())
	}
	return nil
}

var _ quote.Presenter = (*Webhook)(nil)
