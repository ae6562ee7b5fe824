package quote_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/quotehunter/internal/analysis"
	"github.com/kiranshivaraju/quotehunter/internal/frames"
	"github.com/kiranshivaraju/quotehunter/internal/matcher"
	"github.com/kiranshivaraju/quotehunter/internal/pricing"
	"github.com/kiranshivaraju/quotehunter/internal/quote"
	"github.com/kiranshivaraju/quotehunter/internal/store"
	"github.com/kiranshivaraju/quotehunter/internal/vision/mock"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type recorder struct {
	mu        sync.Mutex
	snapshots []models.StatusSnapshot
	quotes    []models.QuoteCard
	errors    []models.ErrorCard
}

func (r *recorder) PublishStatus(_ context.Context, s models.StatusSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
	return nil
}

func (r *recorder) DeliverQuote(_ context.Context, c models.QuoteCard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotes = append(r.quotes, c)
	return nil
}

func (r *recorder) DeliverError(_ context.Context, c models.ErrorCard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, c)
	return nil
}

func (r *recorder) last() models.StatusSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[len(r.snapshots)-1]
}

type brokenFrames struct{}

func (brokenFrames) Name() string { return "broken" }
func (brokenFrames) Frames(context.Context, string) ([]models.Frame, error) {
	return nil, errors.New("bucket unreachable")
}

// funcAnalyzer lets a test script both analyzer steps.
type funcAnalyzer struct {
	frames    func(ctx context.Context) ([]models.Frame, error)
	interpret func(ctx context.Context) analysis.AnalysisResult
}

func (f funcAnalyzer) Frames(ctx context.Context, _ string) ([]models.Frame, error) {
	return f.frames(ctx)
}

func (f funcAnalyzer) Interpret(ctx context.Context, _ string, _ []models.Frame) analysis.AnalysisResult {
	return f.interpret(ctx)
}

func okFrames(context.Context) ([]models.Frame, error) {
	return []models.Frame{{MediaType: "image/jpeg", Source: "test"}}, nil
}

// unwritableStore fails every write of a sourcing request.
type unwritableStore struct {
	*store.MemoryStore
}

func (unwritableStore) CreateSourcingRequest(context.Context, *models.SourcingRequest, ...*models.ActionLog) error {
	return store.ErrUnavailable
}

// cancellingStore cancels the run while the sourcing request is being written.
type cancellingStore struct {
	*store.MemoryStore
	cancel context.CancelFunc
}

func (s cancellingStore) CreateSourcingRequest(ctx context.Context, req *models.SourcingRequest, actions ...*models.ActionLog) error {
	s.cancel()
	return s.MemoryStore.CreateSourcingRequest(ctx, req, actions...)
}

// eventLog records presenter calls in order.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) PublishStatus(_ context.Context, s models.StatusSnapshot) error {
	l.add("status:" + string(s.Phase))
	return nil
}

func (l *eventLog) DeliverQuote(context.Context, models.QuoteCard) error {
	l.add("quote")
	return nil
}

func (l *eventLog) DeliverError(context.Context, models.ErrorCard) error {
	l.add("error")
	return nil
}

const reference = "https://vm.tiktok.com/ZMabc123/"

func trigger() quote.Trigger {
	return quote.Trigger{Reference: reference, RequesterID: "u-42", RequesterName: "alice", ChannelID: "c-1"}
}

func newAssembler(an quote.Analyzer, gw store.Gateway, p quote.Presenter) *quote.Assembler {
	return quote.NewAssembler(an, matcher.New(gw), pricing.Default(), gw, p, quote.WithStoreTimeout(time.Second))
}

func stateRow(s models.StatusSnapshot) []models.StageState {
	return []models.StageState{s.State(models.StageDownload), s.State(models.StageAnalysis), s.State(models.StageMatching)}
}

// --- tests ---

func TestRun_DemoFallbackEndToEnd(t *testing.T) {
	gw := store.NewMemoryStore()
	rec := &recorder{}
	adapter := analysis.NewAdapter(frames.NewPlaceholder(), mock.NewFailingProvider(models.ErrVisionUnavailable))

	out := newAssembler(adapter, gw, rec).Run(context.Background(), trigger())

	require.NoError(t, out.Err)
	assert.Equal(t, models.RequestStatusCompleted, out.Status)
	assert.Equal(t, analysis.OutcomeDemo, out.AnalysisOutcome)
	assert.Equal(t, matcher.SourceFallback, out.MatchSource)
	assert.True(t, out.Persisted)

	require.Len(t, rec.quotes, 1)
	card := rec.quotes[0]
	assert.Equal(t, analysis.DemoAnalysis().ProductName, card.ProductName)
	assert.True(t, card.Synthetic)
	assert.Equal(t, 8.83, card.UnitPriceUSD)
	assert.Equal(t, 1000, card.MOQ)
	assert.Equal(t, 25, card.LeadTimeDays)
	assert.Len(t, card.Factories, 3)
	assert.Equal(t, "深圳前沿科技", card.Factories[0].Name)
	assert.Equal(t, 9, card.Confidence.Filled)
	assert.Equal(t, 92, card.Confidence.Percent)
	assert.Equal(t, out.RequestID.String(), card.Footer)
	assert.Empty(t, rec.errors)

	saved, err := gw.GetSourcingRequest(context.Background(), out.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, saved.Status)
	assert.Equal(t, card.ProductName, saved.ProductName)
	assert.Equal(t, "u-42", saved.RequesterID)
	assert.Equal(t, models.ProvenanceDemo, saved.Analysis.Provenance)

	var kinds []string
	for _, a := range gw.Actions() {
		kinds = append(kinds, a.ActionType)
	}
	assert.Equal(t, []string{models.ActionAnalysis, models.ActionQuoteGenerated, models.ActionFactoryMatched}, kinds)

	msgs, err := gw.ListMessages(context.Background(), store.NewFilter().Eq("channel_id", "c-1"))
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestRun_SnapshotsAreMonotonic(t *testing.T) {
	rec := &recorder{}
	adapter := analysis.NewAdapter(frames.NewPlaceholder(), mock.NewMockProvider())

	newAssembler(adapter, store.NewMemoryStore(), rec).Run(context.Background(), trigger())

	require.Len(t, rec.snapshots, 6)
	want := [][]models.StageState{
		{models.StateInProgress, models.StatePending, models.StatePending},
		{models.StateDone, models.StatePending, models.StatePending},
		{models.StateDone, models.StateInProgress, models.StatePending},
		{models.StateDone, models.StateDone, models.StatePending},
		{models.StateDone, models.StateDone, models.StateInProgress},
		{models.StateDone, models.StateDone, models.StateDone},
	}
	for i, snap := range rec.snapshots {
		assert.Equal(t, i+1, snap.Seq)
		assert.Equal(t, want[i], stateRow(snap), "snapshot %d", i+1)
	}
	assert.Equal(t, models.PhaseCompleted, rec.last().Phase)
	assert.Equal(t, "found 3", rec.last().Stages[2].Detail)
}

func TestRun_VisionAnswerUsesStoreSuppliers(t *testing.T) {
	gw := store.NewMemoryStore(&models.Supplier{
		ID: "s-1", Name: "Shenzhen Mounts", Category: "Electronics", MOQ: 500, Rating: 4.6,
		Location: "Shenzhen", Status: models.SupplierStatusActive,
	})
	rec := &recorder{}
	adapter := analysis.NewAdapter(frames.NewPlaceholder(), mock.NewMockProvider())

	out := newAssembler(adapter, gw, rec).Run(context.Background(), trigger())

	assert.Equal(t, analysis.OutcomeOK, out.AnalysisOutcome)
	assert.Equal(t, matcher.SourceStore, out.MatchSource)
	require.NotNil(t, out.Card)
	assert.Equal(t, "Magnetic Phone Mount", out.Card.ProductName)
	assert.False(t, out.Card.Synthetic)
	assert.Equal(t, 1, out.Card.FactoryCount)
	assert.Equal(t, 8, out.Card.Confidence.Filled)
}

func TestRun_TriggerOverridesOrderParameters(t *testing.T) {
	rec := &recorder{}
	adapter := analysis.NewAdapter(frames.NewPlaceholder(), mock.NewMockProvider())
	tr := trigger()
	tr.Quantity = 5000
	tr.Complexity = models.ComplexityLow

	out := newAssembler(adapter, store.NewMemoryStore(), rec).Run(context.Background(), tr)

	require.NotNil(t, out.Card)
	// Electronics, low: 2.0 * (1.5 + 1.0 + 0.4) = 5.80, less 15%.
	assert.Equal(t, 4.93, out.Card.UnitPriceUSD)
	assert.Equal(t, 5000, out.Card.MOQ)
}

func TestRun_PersistenceFailureStillDelivers(t *testing.T) {
	gw := unwritableStore{store.NewMemoryStore()}
	rec := &recorder{}
	adapter := analysis.NewAdapter(frames.NewPlaceholder(), mock.NewMockProvider())

	out := newAssembler(adapter, gw, rec).Run(context.Background(), trigger())

	require.NoError(t, out.Err)
	assert.False(t, out.Persisted)
	assert.Equal(t, models.RequestStatusCompleted, out.Status)
	require.Len(t, rec.quotes, 1)
	assert.Equal(t, models.RequestIDUnavailable, rec.quotes[0].Footer)
}

func TestRun_FrameFailure(t *testing.T) {
	gw := store.NewMemoryStore()
	rec := &recorder{}
	adapter := analysis.NewAdapter(brokenFrames{}, mock.NewMockProvider())

	out := newAssembler(adapter, gw, rec).Run(context.Background(), trigger())

	assert.ErrorIs(t, out.Err, analysis.ErrFrameAcquisition)
	assert.Equal(t, models.RequestStatusFailed, out.Status)
	assert.Empty(t, rec.quotes)
	require.Len(t, rec.errors, 1)
	assert.Equal(t, quote.FrameFailureTitle, rec.errors[0].Title)

	last := rec.last()
	assert.Equal(t, models.PhaseFailed, last.Phase)
	assert.Equal(t, models.StatePending, last.State(models.StageAnalysis))

	_, err := gw.GetSourcingRequest(context.Background(), out.RequestID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	actions := gw.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionPipelineFailed, actions[0].ActionType)
}

func TestRun_PanicIsRecovered(t *testing.T) {
	rec := &recorder{}
	an := funcAnalyzer{
		frames:    okFrames,
		interpret: func(context.Context) analysis.AnalysisResult { panic("boom") },
	}

	out := newAssembler(an, store.NewMemoryStore(), rec).Run(context.Background(), trigger())

	assert.ErrorIs(t, out.Err, quote.ErrPipelinePanic)
	assert.Equal(t, models.RequestStatusFailed, out.Status)
	require.Len(t, rec.errors, 1)
	assert.Equal(t, quote.ProcessingErrorTitle, rec.errors[0].Title)
	assert.Equal(t, models.PhaseFailed, rec.last().Phase)
}

func TestRun_EstimateErrorFails(t *testing.T) {
	rec := &recorder{}
	adapter := analysis.NewAdapter(frames.NewPlaceholder(), mock.NewMockProvider())
	tr := trigger()
	tr.Complexity = "extreme"

	out := newAssembler(adapter, store.NewMemoryStore(), rec).Run(context.Background(), tr)

	assert.ErrorIs(t, out.Err, pricing.ErrInvalidComplexity)
	require.Len(t, rec.errors, 1)
	assert.Equal(t, quote.ProcessingErrorTitle, rec.errors[0].Title)
}

func TestRun_UsesTriggerRequestID(t *testing.T) {
	id := uuid.New()
	tr := trigger()
	tr.RequestID = id
	adapter := analysis.NewAdapter(frames.NewPlaceholder(), mock.NewMockProvider())

	out := newAssembler(adapter, store.NewMemoryStore(), nil).Run(context.Background(), tr)

	assert.Equal(t, id, out.RequestID)
}

func TestRun_CancelledBeforeWritePersistsNothing(t *testing.T) {
	gw := store.NewMemoryStore()
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	an := funcAnalyzer{
		frames: okFrames,
		interpret: func(ctx context.Context) analysis.AnalysisResult {
			cancel()
			return analysis.AnalysisResult{Outcome: analysis.OutcomeError, Err: ctx.Err()}
		},
	}

	out := newAssembler(an, gw, rec).Run(ctx, trigger())

	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Equal(t, models.RequestStatusFailed, out.Status)
	assert.Empty(t, rec.errors)
	assert.Empty(t, rec.quotes)
	assert.Equal(t, models.PhaseFailed, rec.last().Phase)

	reqs, err := gw.ListSourcingRequests(context.Background(), store.NewFilter())
	require.NoError(t, err)
	assert.Empty(t, reqs)
	assert.Empty(t, gw.Actions())
}

func TestRun_CancelledDuringWritePersistsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gw := cancellingStore{MemoryStore: store.NewMemoryStore(), cancel: cancel}
	rec := &recorder{}
	adapter := analysis.NewAdapter(frames.NewPlaceholder(), mock.NewMockProvider())

	out := newAssembler(adapter, gw, rec).Run(ctx, trigger())

	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Equal(t, models.RequestStatusFailed, out.Status)
	assert.False(t, out.Persisted)
	assert.Nil(t, out.Card)
	assert.Empty(t, rec.quotes)
	assert.Empty(t, rec.errors)
	assert.Equal(t, models.PhaseFailed, rec.last().Phase)

	reqs, err := gw.ListSourcingRequests(context.Background(), store.NewFilter())
	require.NoError(t, err)
	assert.Empty(t, reqs)
	msgs, err := gw.ListMessages(context.Background(), store.NewFilter())
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Empty(t, gw.Actions())
}

func TestRun_CardDeliveredBeforeFinalSnapshot(t *testing.T) {
	t.Run("completed", func(t *testing.T) {
		events := &eventLog{}
		adapter := analysis.NewAdapter(frames.NewPlaceholder(), mock.NewMockProvider())

		newAssembler(adapter, store.NewMemoryStore(), events).Run(context.Background(), trigger())

		n := len(events.events)
		require.GreaterOrEqual(t, n, 2)
		assert.Equal(t, []string{"quote", "status:" + string(models.PhaseCompleted)}, events.events[n-2:])
	})

	t.Run("failed", func(t *testing.T) {
		events := &eventLog{}
		adapter := analysis.NewAdapter(brokenFrames{}, mock.NewMockProvider())

		newAssembler(adapter, store.NewMemoryStore(), events).Run(context.Background(), trigger())

		n := len(events.events)
		require.GreaterOrEqual(t, n, 2)
		assert.Equal(t, []string{"error", "status:" + string(models.PhaseFailed)}, events.events[n-2:])
	})
}

func TestRun_ConcurrentDuplicatesAreIndependent(t *testing.T) {
	gw := store.NewMemoryStore()
	adapter := analysis.NewAdapter(frames.NewPlaceholder(), mock.NewMockProvider())
	a := newAssembler(adapter, gw, nil)

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = a.Run(context.Background(), trigger()).RequestID
		}(i)
	}
	wg.Wait()

	reqs, err := gw.ListSourcingRequests(context.Background(), store.NewFilter().Eq("user_id", "u-42"))
	require.NoError(t, err)
	assert.Len(t, reqs, 4)
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 4)
}
