package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/quotehunter/internal/analysis"
	"github.com/kiranshivaraju/quotehunter/internal/matcher"
	"github.com/kiranshivaraju/quotehunter/internal/store"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
	"golang.org/x/sync/errgroup"
)

// ErrPipelinePanic wraps a value recovered from a panicking stage.
var ErrPipelinePanic = errors.New("pipeline panicked")

// Analyzer acquires frames for a reference and interprets them.
type Analyzer interface {
	Frames(ctx context.Context, reference string) ([]models.Frame, error)
	Interpret(ctx context.Context, reference string, frames []models.Frame) analysis.AnalysisResult
}

// FactoryMatcher proposes manufacturers. It never fails.
type FactoryMatcher interface {
	Match(ctx context.Context, keywords, category string) matcher.MatchResult
}

// PriceEstimator prices an order.
type PriceEstimator interface {
	Estimate(category, complexity string, quantity int) (models.PriceQuote, error)
}

// Trigger is one detected request for a quote.
type Trigger struct {
	// RequestID is assigned by the caller when it must know the identifier
	// before the run starts. A zero value gets a fresh one.
	RequestID     uuid.UUID
	Reference     string
	Platform      string
	RequesterID   string
	RequesterName string
	ChannelID     string
	// Quantity and Complexity override the assembler defaults when set.
	Quantity   int
	Complexity string
}

// Outcome summarizes a finished run.
type Outcome struct {
	RequestID       uuid.UUID
	Status          string
	Persisted       bool
	AnalysisOutcome analysis.Outcome
	MatchSource     matcher.Source
	Card            *models.QuoteCard
	ErrorCard       *models.ErrorCard
	Err             error
}

// Assembler runs the sourcing pipeline for one trigger at a time; it holds
// no per-run state and may be shared by concurrent runs.
type Assembler struct {
	analyzer     Analyzer
	matcher      FactoryMatcher
	estimator    PriceEstimator
	gateway      store.Gateway
	presenter    Presenter
	storeTimeout time.Duration
	platform     string
	quantity     int
	complexity   string
	botID        string
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithStoreTimeout bounds each gateway call.
func WithStoreTimeout(d time.Duration) AssemblerOption {
	return func(a *Assembler) { a.storeTimeout = d }
}

// WithDefaults sets the platform name and order parameters used when a
// trigger leaves them empty.
func WithDefaults(platform string, quantity int, complexity string) AssemblerOption {
	return func(a *Assembler) {
		if platform != "" {
			a.platform = platform
		}
		if quantity > 0 {
			a.quantity = quantity
		}
		if complexity != "" {
			a.complexity = complexity
		}
	}
}

// WithBotID sets the user ID recorded on the bot's own mirrored messages.
func WithBotID(id string) AssemblerOption {
	return func(a *Assembler) {
		if id != "" {
			a.botID = id
		}
	}
}

func NewAssembler(an Analyzer, m FactoryMatcher, est PriceEstimator, gw store.Gateway, p Presenter, opts ...AssemblerOption) *Assembler {
	if p == nil {
		p = Discard{}
	}
	a := &Assembler{
		analyzer:     an,
		matcher:      m,
		estimator:    est,
		gateway:      gw,
		presenter:    p,
		storeTimeout: 10 * time.Second,
		platform:     "TikTok",
		quantity:     1000,
		complexity:   models.ComplexityMedium,
		botID:        "quotehunter",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// run carries the mutable state of one pipeline.
type run struct {
	req   *models.SourcingRequest
	board *StatusBoard
	log   *slog.Logger
	out   Outcome
}

// Run executes the pipeline for t and returns once a quote or error card has
// been delivered. Cancelling ctx before the gateway write leaves nothing
// persisted and ends the run in the failed phase.
func (a *Assembler) Run(ctx context.Context, t Trigger) (out Outcome) {
	platform := t.Platform
	if platform == "" {
		platform = a.platform
	}
	req := models.NewSourcingRequest(platform, t.RequesterID, t.RequesterName, t.ChannelID, t.Reference)
	if t.RequestID != uuid.Nil {
		req.ID = t.RequestID
	}
	r := &run{
		req:   req,
		board: NewStatusBoard(req.ID),
		log:   slog.With("request_id", req.ID),
		out:   Outcome{RequestID: req.ID},
	}

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("panic in pipeline", "error", p)
			card := processingErrorCard(req.ID)
			out = a.fail(ctx, r, &card, fmt.Errorf("%w: %v", ErrPipelinePanic, p))
		}
	}()

	_ = req.Advance(models.RequestStatusProcessing)
	r.log.Info("pipeline started", "reference", t.Reference, "requester", t.RequesterID)
	a.advance(ctx, r, models.StageDownload, models.StateInProgress, "")

	frames, err := a.analyzer.Frames(ctx, t.Reference)
	if ctx.Err() != nil {
		return a.cancelled(ctx, r)
	}
	if err != nil {
		r.log.Warn("frame acquisition failed", "stage", models.StageDownload, "error", err)
		card := frameFailureCard(req.ID)
		return a.fail(ctx, r, &card, err)
	}

	a.advance(ctx, r, models.StageDownload, models.StateDone, "")
	a.advance(ctx, r, models.StageAnalysis, models.StateInProgress, "")

	res := a.analyzer.Interpret(ctx, t.Reference, frames)
	r.out.AnalysisOutcome = res.Outcome
	if !res.Success() {
		if ctx.Err() != nil {
			return a.cancelled(ctx, r)
		}
		card := processingErrorCard(req.ID)
		return a.fail(ctx, r, &card, res.Err)
	}
	r.log.Info("analysis finished", "stage", models.StageAnalysis, "outcome", res.Outcome,
		"product", res.Analysis.ProductName, "confidence", res.Analysis.Confidence)

	a.advance(ctx, r, models.StageAnalysis, models.StateDone, "")
	a.advance(ctx, r, models.StageMatching, models.StateInProgress, "")

	quantity, complexity := a.quantity, a.complexity
	if t.Quantity > 0 {
		quantity = t.Quantity
	}
	if t.Complexity != "" {
		complexity = t.Complexity
	}

	var match matcher.MatchResult
	var price models.PriceQuote
	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard(func() error {
		match = a.matcher.Match(gctx, res.Analysis.ProductName, res.Analysis.Category)
		return nil
	}))
	g.Go(guard(func() error {
		var err error
		price, err = a.estimator.Estimate(res.Analysis.Category, complexity, quantity)
		return err
	}))
	if err := g.Wait(); err != nil {
		r.log.Error("matching stage failed", "stage", models.StageMatching, "error", err)
		card := processingErrorCard(req.ID)
		return a.fail(ctx, r, &card, fmt.Errorf("matching stage: %w", err))
	}
	r.out.MatchSource = match.Source
	if ctx.Err() != nil {
		return a.cancelled(ctx, r)
	}

	req.ProductName = res.Analysis.ProductName
	req.Analysis = res.Analysis
	req.Quote = price
	_ = req.Advance(models.RequestStatusQuoted)
	r.out.Persisted = a.persist(ctx, r, res)
	if !r.out.Persisted && ctx.Err() != nil {
		return a.cancelled(ctx, r)
	}

	card := RenderQuoteCard(Artifact{
		RequestID:  req.ID,
		Persisted:  r.out.Persisted,
		Analysis:   res.Analysis,
		Quote:      price,
		Candidates: match.Candidates,
	})
	if err := a.presenter.DeliverQuote(context.WithoutCancel(ctx), card); err != nil {
		r.log.Warn("quote delivery failed", "error", err)
	}
	r.out.Card = &card

	// A poller that sees phase=completed must also find the card.
	a.publish(ctx, r, r.board.Complete(fmt.Sprintf("found %d", len(match.Candidates))))

	_ = req.Advance(models.RequestStatusCompleted)
	a.record(ctx, r, t, card, match)

	r.out.Status = req.Status
	r.log.Info("pipeline completed", "outcome", res.Outcome, "source", match.Source,
		"unit_price_usd", price.UnitPriceUSD, "persisted", r.out.Persisted)
	return r.out
}

// persist writes the quoted request together with its analysis log entry.
func (a *Assembler) persist(ctx context.Context, r *run, res analysis.AnalysisResult) bool {
	sctx, cancel := context.WithTimeout(ctx, a.storeTimeout)
	defer cancel()

	entry := &models.ActionLog{
		ActionType: models.ActionAnalysis,
		Metadata: map[string]any{
			"request_id": r.req.ID.String(),
			"outcome":    string(res.Outcome),
			"provenance": string(res.Analysis.Provenance),
			"confidence": res.Analysis.Confidence,
		},
	}
	if err := a.gateway.CreateSourcingRequest(sctx, r.req, entry); err != nil {
		r.log.Warn("persist sourcing request failed", "error", err)
		return false
	}
	return true
}

// record performs the best-effort writes that follow delivery.
func (a *Assembler) record(ctx context.Context, r *run, t Trigger, card models.QuoteCard, match matcher.MatchResult) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.storeTimeout)
	defer cancel()

	if r.out.Persisted {
		if err := a.gateway.UpdateSourcingRequestStatus(sctx, r.req.ID, models.RequestStatusCompleted); err != nil {
			r.log.Warn("complete sourcing request failed", "error", err)
		}
	}

	now := time.Now().UTC()
	embed, _ := json.Marshal(card)
	messages := []*models.Message{
		{
			ID: uuid.New(), ChannelID: t.ChannelID, UserID: t.RequesterID, UserName: t.RequesterName,
			Content: "Sourcing: " + t.Reference, CreatedAt: now,
		},
		{
			ID: uuid.New(), ChannelID: t.ChannelID, UserID: a.botID, UserName: a.botID,
			Content: card.Title + ": " + card.ProductName, IsBot: true, Embed: embed, CreatedAt: now,
		},
	}
	for _, m := range messages {
		if err := a.gateway.CreateMessage(sctx, m); err != nil {
			r.log.Warn("record message failed", "error", err)
			break
		}
	}

	actions := []*models.ActionLog{
		{ActionType: models.ActionQuoteGenerated, Metadata: map[string]any{
			"request_id":     r.req.ID.String(),
			"unit_price_usd": card.UnitPriceUSD,
			"synthetic":      card.Synthetic,
		}},
		{ActionType: models.ActionFactoryMatched, Metadata: map[string]any{
			"request_id": r.req.ID.String(),
			"source":     string(match.Source),
			"count":      len(match.Candidates),
		}},
	}
	for _, entry := range actions {
		if err := a.gateway.LogAction(sctx, entry); err != nil {
			r.log.Warn("log action failed", "action", entry.ActionType, "error", err)
		}
	}
}

// fail ends the run in the failed state and delivers card when non-nil.
func (a *Assembler) fail(ctx context.Context, r *run, card *models.ErrorCard, cause error) Outcome {
	dctx := context.WithoutCancel(ctx)
	if !r.req.Terminal() {
		_ = r.req.Advance(models.RequestStatusFailed)
	}

	detail := "failed"
	if errors.Is(cause, context.Canceled) {
		detail = "cancelled"
	}
	if card != nil {
		if err := a.presenter.DeliverError(dctx, *card); err != nil {
			r.log.Warn("error card delivery failed", "error", err)
		}
		r.out.ErrorCard = card
	}
	a.publish(dctx, r, r.board.Fail(detail))

	// Cancelled runs (card == nil) leave no trace in the store.
	if card != nil {
		sctx, cancel := context.WithTimeout(dctx, a.storeTimeout)
		defer cancel()
		if r.out.Persisted {
			if err := a.gateway.UpdateSourcingRequestStatus(sctx, r.req.ID, models.RequestStatusFailed); err != nil {
				r.log.Warn("fail sourcing request failed", "error", err)
			}
		}
		meta := map[string]any{"request_id": r.req.ID.String()}
		if cause != nil {
			meta["error"] = cause.Error()
		}
		entry := &models.ActionLog{ActionType: models.ActionPipelineFailed, Metadata: meta}
		if err := a.gateway.LogAction(sctx, entry); err != nil {
			r.log.Warn("log action failed", "action", models.ActionPipelineFailed, "error", err)
		}
	}

	r.out.Status = r.req.Status
	r.out.Err = cause
	r.log.Error("pipeline failed", "error", cause)
	return r.out
}

func (a *Assembler) cancelled(ctx context.Context, r *run) Outcome {
	return a.fail(ctx, r, nil, context.Cause(ctx))
}

func (a *Assembler) advance(ctx context.Context, r *run, stage string, state models.StageState, detail string) {
	if snap, ok := r.board.Advance(stage, state, detail); ok {
		a.publish(ctx, r, snap)
	}
}

func (a *Assembler) publish(ctx context.Context, r *run, snap models.StatusSnapshot) {
	if err := a.presenter.PublishStatus(context.WithoutCancel(ctx), snap); err != nil {
		r.log.Warn("status publish failed", "seq", snap.Seq, "error", err)
	}
}

// guard turns a panic in an errgroup task into an error, since the run's own
// recover does not see other goroutines.
func guard(fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("%w: %v", ErrPipelinePanic, p)
			}
		}()
		return fn()
	}
}
