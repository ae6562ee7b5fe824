package presenter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/quotehunter/internal/cache"
	"github.com/kiranshivaraju/quotehunter/internal/quote"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

// Recorder keeps the latest snapshot and the final card of each run in the
// cache so the status endpoint can serve them.
type Recorder struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewRecorder(c cache.Cache, ttl time.Duration) *Recorder {
	return &Recorder{cache: c, ttl: ttl}
}

// PublishStatus stores snap unless a newer one is already stored.
func (r *Recorder) PublishStatus(ctx context.Context, snap models.StatusSnapshot) error {
	if _, err := r.cache.PutSnapshot(ctx, snap, r.ttl); err != nil {
		return fmt.Errorf("record snapshot: %w", err)
	}
	return nil
}

func (r *Recorder) DeliverQuote(ctx context.Context, card models.QuoteCard) error {
	return r.putCard(ctx, card.RequestID, quoteEnvelope(card))
}

func (r *Recorder) DeliverError(ctx context.Context, card models.ErrorCard) error {
	return r.putCard(ctx, card.RequestID, errorEnvelope(card))
}

func (r *Recorder) putCard(ctx context.Context, id uuid.UUID, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode card: %w", err)
	}
	if err := r.cache.Set(ctx, cache.CardKey(id), data, r.ttl); err != nil {
		return fmt.Errorf("record card: %w", err)
	}
	return nil
}

// RunView is what the status endpoint returns for one run.
type RunView struct {
	Snapshot models.StatusSnapshot `json:"snapshot"`
	Card     json.RawMessage       `json:"card,omitempty"`
}

// Lookup returns the recorded view of a run. found is false when nothing was
// recorded or it has expired.
func (r *Recorder) Lookup(ctx context.Context, id uuid.UUID) (RunView, bool, error) {
	snap, found, err := r.cache.GetSnapshot(ctx, id)
	if err != nil || !found {
		return RunView{}, false, err
	}
	view := RunView{Snapshot: snap}
	card, ok, err := r.cache.Get(ctx, cache.CardKey(id))
	if err != nil {
		return RunView{}, false, err
	}
	if ok {
		view.Card = card
	}
	return view, true, nil
}

var _ quote.Presenter = (*Recorder)(nil)
