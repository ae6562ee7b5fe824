package vision

import (
	"fmt"

	"github.com/kiranshivaraju/quotehunter/internal/config"
	"github.com/kiranshivaraju/quotehunter/internal/vision/anthropic"
	"github.com/kiranshivaraju/quotehunter/internal/vision/mock"
	"github.com/kiranshivaraju/quotehunter/internal/vision/openai"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

// NewProvider constructs the configured vision provider, throttled to
// cfg.RatePerMinute calls. Called once at startup.
func NewProvider(cfg config.VisionConfig) (models.VisionProvider, error) {
	var p models.VisionProvider
	switch cfg.Provider {
	case "anthropic":
		p = anthropic.NewProvider(cfg.Anthropic)
	case "openai":
		p = openai.NewProvider(cfg.OpenAI)
	case "mock":
		p = mock.NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown vision provider %q: must be one of anthropic, openai, mock", cfg.Provider)
	}
	return Throttle(p, cfg.RatePerMinute), nil
}
