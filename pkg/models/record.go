package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message is a chat message mirrored into the store for front-end display.
type Message struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	ChannelID string    `db:"channel_id" json:"channel_id"`
	UserID    string    `db:"user_id"    json:"user_id"`
	UserName  string    `db:"user_name"  json:"user_name"`
	Content   string    `db:"content"    json:"content"`
	IsBot     bool      `db:"is_bot"     json:"is_bot"`
	// Embed carries the structured card a bot message rendered, if any.
	Embed     json.RawMessage `db:"embed_data" json:"embed_data,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Action types written to the agent log.
const (
	ActionAnalysis       = "video_analysis"
	ActionQuoteGenerated = "quote_generated"
	ActionFactoryMatched = "factory_matched"
	ActionPipelineFailed = "pipeline_failed"
)

// ActionLog is an audit entry describing something the pipeline did.
type ActionLog struct {
	ID         uuid.UUID      `db:"id"          json:"id"`
	ActionType string         `db:"action_type" json:"action_type"`
	Metadata   map[string]any `db:"metadata"    json:"metadata"`
	CreatedAt  time.Time      `db:"created_at"  json:"created_at"`
}
