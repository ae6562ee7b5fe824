package mock

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

// SampleAnalysisJSON is the answer NewMockProvider gives: a well-formed
// analysis wrapped in prose, as real models tend to reply.
const SampleAnalysisJSON = `Here is my analysis of the product:
{
  "product_name": "Magnetic Phone Mount",
  "category": "Electronics",
  "features": ["360° rotation", "N52 magnets", "One-hand mounting"],
  "materials": ["Aluminium alloy", "Silicone pad"],
  "estimated_dimensions": "6cm x 6cm x 4cm",
  "estimated_price_range": "$1.80 - $2.60 FOB",
  "sourcing_difficulty": "low",
  "sourcing_advice": "Shenzhen accessory factories routinely run this at MOQ 500.",
  "confidence": 0.81
}
Let me know if you need more detail.`

// MockProvider satisfies models.VisionProvider for testing and offline runs.
type MockProvider struct {
	Name_        string
	CompleteFunc func(ctx context.Context, req models.VisionRequest) (models.VisionResponse, error)
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Complete(ctx context.Context, req models.VisionRequest) (models.VisionResponse, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return models.VisionResponse{}, nil
}

// NewMockProvider returns a MockProvider answering with SampleAnalysisJSON.
func NewMockProvider() *MockProvider {
	return NewStaticProvider(SampleAnalysisJSON)
}

// NewStaticProvider returns a MockProvider that always answers text.
func NewStaticProvider(text string) *MockProvider {
	return &MockProvider{
		Name_: "mock",
		CompleteFunc: func(_ context.Context, _ models.VisionRequest) (models.VisionResponse, error) {
			return models.VisionResponse{Text: text, Model: "mock-v1", Provider: "mock"}, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		CompleteFunc: func(_ context.Context, _ models.VisionRequest) (models.VisionResponse, error) {
			return models.VisionResponse{}, err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		CompleteFunc: func(ctx context.Context, _ models.VisionRequest) (models.VisionResponse, error) {
			<-ctx.Done()
			return models.VisionResponse{}, fmt.Errorf("%w: %v", models.ErrVisionTimeout, ctx.Err())
		},
	}
}

// Compile-time check that MockProvider implements VisionProvider.
var _ models.VisionProvider = (*MockProvider)(nil)
