package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/kiranshivaraju/quotehunter/pkg/models"
	"golang.org/x/time/rate"
)

// Throttled wraps a provider with a token-bucket limiter shared by every pipeline.
type Throttled struct {
	next    models.VisionProvider
	limiter *rate.Limiter
}

// Throttle limits p to perMinute calls per minute with a burst of one. A
// non-positive perMinute returns p unchanged.
func Throttle(p models.VisionProvider, perMinute int) models.VisionProvider {
	if perMinute <= 0 {
		return p
	}
	return &Throttled{
		next:    p,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (t *Throttled) Name() string { return t.next.Name() }

func (t *Throttled) Complete(ctx context.Context, req models.VisionRequest) (models.VisionResponse, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return models.VisionResponse{}, fmt.Errorf("%w: waiting for rate limiter: %v", ErrInferenceTimeout, err)
	}
	return t.next.Complete(ctx, req)
}

var _ models.VisionProvider = (*Throttled)(nil)
