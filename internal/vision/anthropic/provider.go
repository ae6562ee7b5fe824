package anthropic

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/kiranshivaraju/quotehunter/internal/config"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

const defaultMaxTokens = 1000

// Provider implements models.VisionProvider using the Anthropic Messages API.
type Provider struct {
	client sdk.Client
	model  string
}

// NewProvider creates a Provider from cfg. BaseURL is only set in tests and
// for API gateways.
func NewProvider(cfg config.AnthropicConfig) *Provider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Provider{
		client: sdk.NewClient(opts...),
		model:  cfg.Model,
	}
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) Complete(ctx context.Context, req models.VisionRequest) (models.VisionResponse, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.model),
		MaxTokens: maxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(userBlocks(req)...)},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return models.VisionResponse{}, classifyError(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return models.VisionResponse{}, fmt.Errorf("%w: no text content in message %s", models.ErrVisionInvalidResponse, msg.ID)
	}

	return models.VisionResponse{
		Text:     sb.String(),
		Model:    string(msg.Model),
		Provider: p.Name(),
	}, nil
}

// userBlocks puts frame images ahead of the instruction text.
func userBlocks(req models.VisionRequest) []sdk.ContentBlockParamUnion {
	blocks := make([]sdk.ContentBlockParamUnion, 0, len(req.Frames)+1)
	for _, f := range req.Frames {
		if len(f.Data) == 0 {
			continue
		}
		blocks = append(blocks, sdk.NewImageBlockBase64(f.MediaType, base64.StdEncoding.EncodeToString(f.Data)))
	}
	return append(blocks, sdk.NewTextBlock(req.User))
}

func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", models.ErrVisionTimeout, err)
	}
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: anthropic status %d: %v", models.ErrVisionUnavailable, apiErr.StatusCode, err)
	}
	return fmt.Errorf("%w: %v", models.ErrVisionUnavailable, err)
}

var _ models.VisionProvider = (*Provider)(nil)
