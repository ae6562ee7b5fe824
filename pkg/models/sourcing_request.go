package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	RequestStatusDraft      = "draft"
	RequestStatusProcessing = "processing"
	RequestStatusQuoted     = "quoted"
	RequestStatusCompleted  = "completed"
	RequestStatusFailed     = "failed"
)

// ErrInvalidTransition is returned when a status change would move a request backwards
// or out of a terminal state.
var ErrInvalidTransition = errors.New("invalid sourcing request status transition")

var requestTransitions = map[string][]string{
	RequestStatusDraft:      {RequestStatusProcessing, RequestStatusFailed},
	RequestStatusProcessing: {RequestStatusQuoted, RequestStatusFailed},
	RequestStatusQuoted:     {RequestStatusCompleted, RequestStatusFailed},
}

// SourcingRequest is one requester's ask for a quote on a referenced product.
// It is owned by a single pipeline run and persisted once.
type SourcingRequest struct {
	ID            uuid.UUID       `db:"id"             json:"id"`
	Platform      string          `db:"platform"       json:"platform"`
	RequesterID   string          `db:"user_id"        json:"user_id"`
	RequesterName string          `db:"user_name"      json:"user_name"`
	ChannelID     string          `db:"channel_id"     json:"channel_id,omitempty"`
	ReferenceURL  string          `db:"video_url"      json:"video_url"`
	ProductName   string          `db:"product_name"   json:"product_name"`
	Analysis      ProductAnalysis `db:"visual_analysis" json:"visual_analysis"`
	Quote         PriceQuote      `db:"quote"          json:"quote"`
	Status        string          `db:"status"         json:"status"`
	CreatedAt     time.Time       `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"     json:"updated_at"`
}

// NewSourcingRequest returns a draft request with a fresh identifier.
func NewSourcingRequest(platform, requesterID, requesterName, channelID, referenceURL string) *SourcingRequest {
	now := time.Now().UTC()
	return &SourcingRequest{
		ID:            uuid.New(),
		Platform:      platform,
		RequesterID:   requesterID,
		RequesterName: requesterName,
		ChannelID:     channelID,
		ReferenceURL:  referenceURL,
		Status:        RequestStatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CanTransition reports whether a request in status from may move to status to.
func CanTransition(from, to string) bool {
	for _, allowed := range requestTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Advance moves the request to status, enforcing forward-only progress.
func (r *SourcingRequest) Advance(status string) error {
	if !CanTransition(r.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, status)
	}
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// Terminal reports whether no further transitions are possible.
func (r *SourcingRequest) Terminal() bool {
	return r.Status == RequestStatusCompleted || r.Status == RequestStatusFailed
}
