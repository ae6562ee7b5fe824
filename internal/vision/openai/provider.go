package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kiranshivaraju/quotehunter/internal/config"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

const defaultMaxTokens = 1000

// Provider implements models.VisionProvider against any OpenAI-compatible
// chat-completions endpoint.
type Provider struct {
	client   *resty.Client
	model    string
	endpoint string
}

func NewProvider(cfg config.OpenAIConfig) *Provider {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &Provider{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
	}
}

func (p *Provider) Name() string { return "openai" }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type textPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type imagePart struct {
	Type     string   `json:"type"`
	ImageURL imageURL `json:"image_url"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (p *Provider) Complete(ctx context.Context, req models.VisionRequest) (models.VisionResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: userParts(req)},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	}

	var resp chatResponse
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&resp).
		SetError(&resp).
		Post(p.endpoint)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return models.VisionResponse{}, fmt.Errorf("%w: %v", models.ErrVisionTimeout, err)
		}
		return models.VisionResponse{}, fmt.Errorf("%w: %v", models.ErrVisionUnavailable, err)
	}

	if httpResp.IsError() {
		msg := string(httpResp.Body())
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return models.VisionResponse{}, fmt.Errorf("%w: HTTP %d: %s", models.ErrVisionUnavailable, httpResp.StatusCode(), msg)
	}

	if len(resp.Choices) == 0 {
		return models.VisionResponse{}, fmt.Errorf("%w: no choices in response", models.ErrVisionInvalidResponse)
	}

	return models.VisionResponse{
		Text:     resp.Choices[0].Message.Content,
		Model:    resp.Model,
		Provider: p.Name(),
	}, nil
}

func userParts(req models.VisionRequest) []any {
	parts := []any{textPart{Type: "text", Text: req.User}}
	for _, f := range req.Frames {
		if len(f.Data) == 0 {
			continue
		}
		dataURL := fmt.Sprintf("data:%s;base64,%s", f.MediaType, base64.StdEncoding.EncodeToString(f.Data))
		parts = append(parts, imagePart{
			Type:     "image_url",
			ImageURL: imageURL{URL: dataURL, Detail: "auto"},
		})
	}
	return parts
}

var _ models.VisionProvider = (*Provider)(nil)
