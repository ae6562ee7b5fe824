package frames

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

// Placeholder yields a single frame that carries only the reference. Vision
// providers skip frames without bytes and analyze from the prompt alone.
type Placeholder struct{}

func NewPlaceholder() *Placeholder { return &Placeholder{} }

func (p *Placeholder) Name() string { return "placeholder" }

func (p *Placeholder) Frames(ctx context.Context, reference string) ([]models.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reference) == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrNoFrames)
	}
	return []models.Frame{{MediaType: "image/jpeg", Source: "placeholder:" + reference}}, nil
}
