// Package frames supplies representative stills for a reference video.
// Downloading and decoding video is left to whatever process fills the
// backing store; this package only reads what is already there.
package frames

import (
	"context"
	"errors"
	"fmt"

	"github.com/kiranshivaraju/quotehunter/internal/config"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

// ErrNoFrames is returned when no frame could be obtained for a reference.
var ErrNoFrames = errors.New("no frames available for reference")

// Provider returns up to a configured number of frames for a reference URL.
type Provider interface {
	Frames(ctx context.Context, reference string) ([]models.Frame, error)
	Name() string
}

// NewProvider builds the configured frame provider.
func NewProvider(ctx context.Context, cfg config.FramesConfig) (Provider, error) {
	switch cfg.Provider {
	case "placeholder", "":
		return NewPlaceholder(), nil
	case "s3":
		return NewS3Provider(ctx, cfg.S3, cfg.MaxFrames)
	default:
		return nil, fmt.Errorf("unknown frame provider %q: must be one of placeholder, s3", cfg.Provider)
	}
}
