package vision

import "github.com/kiranshivaraju/quotehunter/pkg/models"

var (
	ErrProviderUnavailable = models.ErrVisionUnavailable
	ErrInferenceTimeout    = models.ErrVisionTimeout
	ErrInvalidResponse     = models.ErrVisionInvalidResponse
)
