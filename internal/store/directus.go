package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/quotehunter/internal/config"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

// Directus names its system timestamps differently from the models.
var directusFields = map[string]string{
	"created_at": "date_created",
	"updated_at": "date_updated",
}

// DirectusStore implements Gateway against the Directus items REST API.
// Each write is a single request; action logs attached to a sourcing request
// are written afterwards on a best-effort basis.
type DirectusStore struct {
	client *resty.Client
}

// NewDirectusStore creates a client for cfg.BaseURL authenticated with the
// static cfg.Token.
func NewDirectusStore(cfg config.DirectusConfig, timeout time.Duration) *DirectusStore {
	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/"))
	client.SetAuthToken(cfg.Token)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)
	return &DirectusStore{client: client}
}

type directusEnvelope[T any] struct {
	Data T `json:"data"`
}

type directusErrors struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type directusRequest struct {
	ID            uuid.UUID              `json:"id"`
	Platform      string                 `json:"platform"`
	UserID        string                 `json:"user_id"`
	UserName      string                 `json:"user_name"`
	ChannelID     string                 `json:"channel_id,omitempty"`
	VideoURL      string                 `json:"video_url"`
	ProductName   string                 `json:"product_name"`
	Analysis      models.ProductAnalysis `json:"visual_analysis"`
	Quote         models.PriceQuote      `json:"quote"`
	QuotePriceUSD float64                `json:"quote_price_usd"`
	Status        string                 `json:"status"`
	DateCreated   *time.Time             `json:"date_created,omitempty"`
	DateUpdated   *time.Time             `json:"date_updated,omitempty"`
}

func (d directusRequest) model() *models.SourcingRequest {
	r := &models.SourcingRequest{
		ID:            d.ID,
		Platform:      d.Platform,
		RequesterID:   d.UserID,
		RequesterName: d.UserName,
		ChannelID:     d.ChannelID,
		ReferenceURL:  d.VideoURL,
		ProductName:   d.ProductName,
		Analysis:      d.Analysis,
		Quote:         d.Quote,
		Status:        d.Status,
	}
	if d.DateCreated != nil {
		r.CreatedAt = *d.DateCreated
	}
	r.UpdatedAt = r.CreatedAt
	if d.DateUpdated != nil {
		r.UpdatedAt = *d.DateUpdated
	}
	return r
}

type directusSupplier struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	NameEN         string     `json:"name_en"`
	Category       string     `json:"category"`
	MOQ            int        `json:"moq"`
	Rating         float64    `json:"rating"`
	Location       string     `json:"location"`
	Certifications []string   `json:"certifications"`
	Status         string     `json:"status"`
	DateCreated    *time.Time `json:"date_created,omitempty"`
}

type directusMessage struct {
	ID          uuid.UUID       `json:"id"`
	ChannelID   string          `json:"channel_id"`
	UserID      string          `json:"user_id"`
	UserName    string          `json:"user_name"`
	Content     string          `json:"content"`
	IsBot       bool            `json:"is_bot"`
	Embed       json.RawMessage `json:"embed_data,omitempty"`
	DateCreated *time.Time      `json:"date_created,omitempty"`
}

type directusAction struct {
	ID         uuid.UUID      `json:"id"`
	ActionType string         `json:"action_type"`
	Metadata   map[string]any `json:"metadata"`
}

func (s *DirectusStore) Ping(ctx context.Context) error {
	return s.do(ctx, http.MethodGet, "/server/ping", nil, nil, nil)
}

// --- Sourcing Requests ---

func (s *DirectusStore) CreateSourcingRequest(ctx context.Context, req *models.SourcingRequest, actions ...*models.ActionLog) error {
	body := directusRequest{
		ID:            req.ID,
		Platform:      req.Platform,
		UserID:        req.RequesterID,
		UserName:      req.RequesterName,
		ChannelID:     req.ChannelID,
		VideoURL:      req.ReferenceURL,
		ProductName:   req.ProductName,
		Analysis:      req.Analysis,
		Quote:         req.Quote,
		QuotePriceUSD: req.Quote.UnitPriceUSD,
		Status:        req.Status,
	}
	if err := s.do(ctx, http.MethodPost, "/items/sourcing_requests", nil, body, nil); err != nil {
		return fmt.Errorf("create sourcing request: %w", err)
	}

	for _, a := range actions {
		if err := s.LogAction(ctx, a); err != nil {
			slog.Warn("directus action log failed", "request_id", req.ID, "action", a.ActionType, "error", err)
		}
	}
	return nil
}

func (s *DirectusStore) GetSourcingRequest(ctx context.Context, id uuid.UUID) (*models.SourcingRequest, error) {
	var out directusEnvelope[directusRequest]
	if err := s.do(ctx, http.MethodGet, "/items/sourcing_requests/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Data.model(), nil
}

// UpdateSourcingRequestStatus reads the current status, validates the
// transition and patches the item.
func (s *DirectusStore) UpdateSourcingRequestStatus(ctx context.Context, id uuid.UUID, status string) error {
	current, err := s.GetSourcingRequest(ctx, id)
	if err != nil {
		return err
	}
	if !models.CanTransition(current.Status, status) {
		return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, current.Status, status)
	}
	body := map[string]any{"status": status}
	if err := s.do(ctx, http.MethodPatch, "/items/sourcing_requests/"+id.String(), nil, body, nil); err != nil {
		return fmt.Errorf("update sourcing request status: %w", err)
	}
	return nil
}

func (s *DirectusStore) ListSourcingRequests(ctx context.Context, filter Filter) ([]*models.SourcingRequest, error) {
	var out directusEnvelope[[]directusRequest]
	if err := s.do(ctx, http.MethodGet, "/items/sourcing_requests", directusQuery(filter), nil, &out); err != nil {
		return nil, fmt.Errorf("list sourcing requests: %w", err)
	}
	requests := make([]*models.SourcingRequest, 0, len(out.Data))
	for _, d := range out.Data {
		requests = append(requests, d.model())
	}
	return requests, nil
}

// --- Suppliers ---

func (s *DirectusStore) ListSuppliers(ctx context.Context, filter Filter) ([]*models.Supplier, error) {
	var out directusEnvelope[[]directusSupplier]
	if err := s.do(ctx, http.MethodGet, "/items/suppliers", directusQuery(filter), nil, &out); err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	suppliers := make([]*models.Supplier, 0, len(out.Data))
	for _, d := range out.Data {
		sp := &models.Supplier{
			ID:             d.ID,
			Name:           d.Name,
			NameEN:         d.NameEN,
			Category:       d.Category,
			MOQ:            d.MOQ,
			Rating:         d.Rating,
			Location:       d.Location,
			Certifications: d.Certifications,
			Status:         d.Status,
		}
		if d.DateCreated != nil {
			sp.CreatedAt = *d.DateCreated
		}
		suppliers = append(suppliers, sp)
	}
	return suppliers, nil
}

// --- Messages ---

func (s *DirectusStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	body := directusMessage{
		ID:        msg.ID,
		ChannelID: msg.ChannelID,
		UserID:    msg.UserID,
		UserName:  msg.UserName,
		Content:   msg.Content,
		IsBot:     msg.IsBot,
		Embed:     msg.Embed,
	}
	if err := s.do(ctx, http.MethodPost, "/items/messages", nil, body, nil); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (s *DirectusStore) ListMessages(ctx context.Context, filter Filter) ([]*models.Message, error) {
	var out directusEnvelope[[]directusMessage]
	if err := s.do(ctx, http.MethodGet, "/items/messages", directusQuery(filter), nil, &out); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	messages := make([]*models.Message, 0, len(out.Data))
	for _, d := range out.Data {
		m := &models.Message{
			ID:        d.ID,
			ChannelID: d.ChannelID,
			UserID:    d.UserID,
			UserName:  d.UserName,
			Content:   d.Content,
			IsBot:     d.IsBot,
			Embed:     d.Embed,
		}
		if d.DateCreated != nil {
			m.CreatedAt = *d.DateCreated
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// --- Agent Logs ---

func (s *DirectusStore) LogAction(ctx context.Context, action *models.ActionLog) error {
	if action.ID == uuid.Nil {
		action.ID = uuid.New()
	}
	body := directusAction{ID: action.ID, ActionType: action.ActionType, Metadata: action.Metadata}
	if err := s.do(ctx, http.MethodPost, "/items/agent_logs", nil, body, nil); err != nil {
		return fmt.Errorf("log action: %w", err)
	}
	return nil
}

// directusQuery renders a Filter as Directus query parameters.
func directusQuery(f Filter) url.Values {
	q := url.Values{}
	for _, field := range sortedKeys(f.Equals) {
		q.Set(fmt.Sprintf("filter[%s][_eq]", directusField(field)), fmt.Sprint(f.Equals[field]))
	}
	for _, field := range sortedKeys(f.Contains) {
		q.Set(fmt.Sprintf("filter[%s][_icontains]", directusField(field)), f.Contains[field])
	}
	if f.SortDesc != "" {
		q.Set("sort", "-"+directusField(f.SortDesc))
	}
	q.Set("limit", strconv.Itoa(f.limit()))
	return q
}

func directusField(field string) string {
	if mapped, ok := directusFields[field]; ok {
		return mapped
	}
	return field
}

func (s *DirectusStore) do(ctx context.Context, method, path string, query url.Values, body, result any) error {
	var errBody directusErrors
	r := s.client.R().SetContext(ctx).SetError(&errBody)
	if query != nil {
		r.SetQueryParamsFromValues(query)
	}
	if body != nil {
		r.SetBody(body)
	}
	if result != nil {
		r.SetResult(result)
	}

	resp, err := r.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%w: directus %s %s: %w", ErrUnavailable, method, path, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return fmt.Errorf("%w: directus %s %s: HTTP %d", ErrUnavailable, method, path, code)
	case resp.IsError():
		msg := strings.TrimSpace(string(resp.Body()))
		if len(errBody.Errors) > 0 {
			msg = errBody.Errors[0].Message
		}
		return fmt.Errorf("directus %s %s: HTTP %d: %s", method, path, code, msg)
	}
	return nil
}

var _ Gateway = (*DirectusStore)(nil)
