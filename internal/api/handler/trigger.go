package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	mw "github.com/kiranshivaraju/quotehunter/internal/api/middleware"
	"github.com/kiranshivaraju/quotehunter/internal/api/response"
	"github.com/kiranshivaraju/quotehunter/internal/matcher"
	"github.com/kiranshivaraju/quotehunter/internal/quote"
	"github.com/kiranshivaraju/quotehunter/internal/store"
	"github.com/kiranshivaraju/quotehunter/internal/trigger"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

// Actions reported by the trigger endpoint.
const (
	ActionQuote   = "quote"
	ActionHelp    = "help"
	ActionHistory = "history"
	ActionSearch  = "search"
	ActionIgnored = "ignored"
	ActionNone    = "none"
)

const (
	historyLimit = 5
	searchLimit  = 5
)

// HelpEntries lists the chat commands, in display order.
var HelpEntries = []HelpEntry{
	{Usage: "<video link>", Description: "Send a TikTok link to identify the product and get a quote"},
	{Usage: "!search <keywords>", Description: "Search the supplier database"},
	{Usage: "!history", Description: "Show your recent sourcing requests"},
	{Usage: "!help", Description: "Show this help"},
}

type HelpEntry struct {
	Usage       string `json:"usage"`
	Description string `json:"description"`
}

// TriggerDeps are the collaborators of the trigger endpoint.
type TriggerDeps struct {
	Detector *trigger.Detector
	Runner   PipelineStarter
	Requests RequestReader
	Search   FactorySearcher
}

type triggerRequest struct {
	trigger.InboundMessage
	Quantity   int    `json:"quantity"`
	Complexity string `json:"complexity"`
}

type triggerResponse struct {
	Action    string                    `json:"action"`
	RequestID string                    `json:"request_id,omitempty"`
	StatusURL string                    `json:"status_url,omitempty"`
	Reference string                    `json:"reference,omitempty"`
	Help      []HelpEntry               `json:"help,omitempty"`
	History   []historyLine             `json:"history,omitempty"`
	Query     string                    `json:"query,omitempty"`
	Source    matcher.Source            `json:"source,omitempty"`
	Factories []models.FactoryCandidate `json:"factories,omitempty"`
}

type historyLine struct {
	RequestID    string  `json:"request_id"`
	ProductName  string  `json:"product_name"`
	UnitPriceUSD float64 `json:"unit_price_usd"`
	Status       string  `json:"status"`
}

// NewTriggerHandler returns an http.HandlerFunc for POST /api/v1/triggers.
// The transport posts every chat message it sees; reference links start a
// pipeline and commands are answered inline.
func NewTriggerHandler(deps TriggerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req triggerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Content == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "content is required", nil)
			return
		}
		if req.Quantity < 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "quantity must be positive", nil)
			return
		}
		switch req.Complexity {
		case "", models.ComplexityLow, models.ComplexityMedium, models.ComplexityHigh:
		default:
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"complexity must be one of low, medium, high", nil)
			return
		}

		msg := req.InboundMessage
		if msg.AuthorID == "" {
			if who, ok := mw.GetRequester(r); ok {
				msg.AuthorID, msg.AuthorName = who.ID, who.Name
			}
		}

		if !deps.Detector.Accepts(msg) {
			response.JSON(w, triggerResponse{Action: ActionIgnored})
			return
		}

		if ref, ok := deps.Detector.DetectMessage(msg); ok {
			startQuote(w, r, deps, req, msg, ref)
			return
		}

		cmd, ok := trigger.ParseCommand(msg.Content)
		if !ok {
			response.JSON(w, triggerResponse{Action: ActionNone})
			return
		}
		switch cmd.Kind {
		case trigger.CommandHelp:
			response.JSON(w, triggerResponse{Action: ActionHelp, Help: HelpEntries})
		case trigger.CommandHistory:
			history(w, r, deps, msg.AuthorID)
		case trigger.CommandSearch:
			result := deps.Search.Match(r.Context(), cmd.Query, "")
			factories := result.Candidates
			if len(factories) > searchLimit {
				factories = factories[:searchLimit]
			}
			response.JSON(w, triggerResponse{
				Action: ActionSearch, Query: cmd.Query, Source: result.Source, Factories: factories,
			})
		}
	}
}

func startQuote(w http.ResponseWriter, r *http.Request, deps TriggerDeps, req triggerRequest, msg trigger.InboundMessage, ref string) {
	name := msg.AuthorName
	if name == "" {
		name = msg.AuthorID
	}
	id, err := deps.Runner.Start(r.Context(), quote.Trigger{
		Reference:     ref,
		RequesterID:   msg.AuthorID,
		RequesterName: name,
		ChannelID:     msg.ChannelID,
		Quantity:      req.Quantity,
		Complexity:    req.Complexity,
	})
	if err != nil {
		if errors.Is(err, quote.ErrShuttingDown) {
			response.Error(w, http.StatusServiceUnavailable, "SHUTTING_DOWN",
				"The server is shutting down", nil)
			return
		}
		slog.Error("start pipeline failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
		return
	}

	slog.Info("pipeline started", "request_id", id, "reference", ref, "requester", msg.AuthorID)
	response.Accepted(w, triggerResponse{
		Action:    ActionQuote,
		RequestID: id.String(),
		StatusURL: fmt.Sprintf("/api/v1/pipelines/%s", id),
		Reference: ref,
	})
}

func history(w http.ResponseWriter, r *http.Request, deps TriggerDeps, userID string) {
	filter := store.NewFilter().Eq("user_id", userID).Sort("created_at").Take(historyLimit)
	requests, err := deps.Requests.ListSourcingRequests(r.Context(), filter)
	if err != nil {
		slog.Warn("history lookup failed", "user_id", userID, "error", err)
		response.Error(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE",
			"Sourcing history is temporarily unavailable", nil)
		return
	}

	lines := make([]historyLine, 0, len(requests))
	for _, sr := range requests {
		lines = append(lines, historyLine{
			RequestID:    sr.ID.String(),
			ProductName:  sr.ProductName,
			UnitPriceUSD: sr.Quote.UnitPriceUSD,
			Status:       sr.Status,
		})
	}
	response.JSON(w, triggerResponse{Action: ActionHistory, History: lines})
}
