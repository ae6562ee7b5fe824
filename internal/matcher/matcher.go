// Package matcher proposes manufacturers for an analyzed product.
package matcher

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kiranshivaraju/quotehunter/internal/cache"
	"github.com/kiranshivaraju/quotehunter/internal/pricing"
	"github.com/kiranshivaraju/quotehunter/internal/store"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

// Source tags where a MatchResult came from.
type Source string

const (
	SourceStore    Source = "store"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

// MatchResult holds at most models.MaxMatchCandidates candidates ordered by
// rating, highest first.
type MatchResult struct {
	Candidates []models.FactoryCandidate `json:"candidates"`
	Source     Source                    `json:"source"`
}

// Matcher queries the supplier store, optionally through a cache. It never
// fails: when the store is unreachable or has nothing, the built-in fallback
// list is returned.
type Matcher struct {
	gateway  store.Gateway
	cache    cache.Cache
	cacheTTL time.Duration
	timeout  time.Duration
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithCache caches store hits per category for ttl. A nil cache disables caching.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(m *Matcher) {
		m.cache = c
		m.cacheTTL = ttl
	}
}

// WithTimeout bounds each store query.
func WithTimeout(d time.Duration) Option {
	return func(m *Matcher) { m.timeout = d }
}

func New(gw store.Gateway, opts ...Option) *Matcher {
	m := &Matcher{gateway: gw, cacheTTL: 10 * time.Minute, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match finds active suppliers whose category contains the primary label of
// category. With no category, suppliers whose name contains keywords are
// returned instead.
func (m *Matcher) Match(ctx context.Context, keywords, category string) MatchResult {
	label := pricing.PrimaryLabel(category)

	if label != "" {
		if cached, ok := m.fromCache(ctx, label); ok {
			slog.Info("factory match", "category", label, "source", SourceCache, "count", len(cached))
			return MatchResult{Candidates: cached, Source: SourceCache}
		}
	}

	filter := store.NewFilter().
		Eq("status", models.SupplierStatusActive).
		Sort("rating").
		Take(models.MaxMatchCandidates)
	if label != "" {
		filter = filter.Like("category", label)
	} else {
		filter = filter.Like("name", strings.TrimSpace(keywords))
	}

	qctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	suppliers, err := m.gateway.ListSuppliers(qctx, filter)
	if err != nil {
		slog.Warn("supplier query failed, using fallback factories", "category", label, "error", err)
		return fallbackResult()
	}

	candidates := normalize(suppliers)
	if len(candidates) == 0 {
		slog.Info("factory match", "category", label, "source", SourceFallback, "count", 0)
		return fallbackResult()
	}

	if label != "" {
		m.toCache(ctx, label, candidates)
	}
	slog.Info("factory match", "category", label, "source", SourceStore, "count", len(candidates))
	return MatchResult{Candidates: candidates, Source: SourceStore}
}

// normalize drops rows that violate the candidate invariants, sorts by rating
// and caps the list. The backend's ordering is not trusted.
func normalize(suppliers []*models.Supplier) []models.FactoryCandidate {
	out := make([]models.FactoryCandidate, 0, len(suppliers))
	for _, s := range suppliers {
		if s == nil || s.MOQ <= 0 || s.Rating < 0 || s.Rating > 5 {
			continue
		}
		out = append(out, s.Candidate())
	}
	sortByRating(out)
	if len(out) > models.MaxMatchCandidates {
		out = out[:models.MaxMatchCandidates]
	}
	return out
}

func sortByRating(c []models.FactoryCandidate) {
	sort.SliceStable(c, func(i, j int) bool { return c[i].Rating > c[j].Rating })
}

func (m *Matcher) fromCache(ctx context.Context, label string) ([]models.FactoryCandidate, bool) {
	if m.cache == nil {
		return nil, false
	}
	data, found, err := m.cache.Get(ctx, cache.MatchKey(label))
	if err != nil {
		slog.Warn("match cache read failed", "category", label, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	var candidates []models.FactoryCandidate
	if err := json.Unmarshal(data, &candidates); err != nil || len(candidates) == 0 {
		return nil, false
	}
	return candidates, true
}

func (m *Matcher) toCache(ctx context.Context, label string, candidates []models.FactoryCandidate) {
	if m.cache == nil {
		return
	}
	data, err := json.Marshal(candidates)
	if err != nil {
		return
	}
	if err := m.cache.Set(ctx, cache.MatchKey(label), data, m.cacheTTL); err != nil {
		slog.Warn("match cache write failed", "category", label, "error", err)
	}
}

func fallbackResult() MatchResult {
	return MatchResult{Candidates: FallbackCandidates(), Source: SourceFallback}
}

// FallbackCandidates returns the three built-in factories, highest rated first.
func FallbackCandidates() []models.FactoryCandidate {
	c := []models.FactoryCandidate{
		{
			ID:             "factory-001",
			Name:           "宁波星辰智造",
			NameEN:         "Ningbo Star Manufacturing",
			Category:       "Home Appliances",
			MOQ:            500,
			Rating:         4.8,
			Location:       "浙江宁波",
			Certifications: []string{"ISO9001", "CE", "FCC"},
		},
		{
			ID:             "factory-002",
			Name:           "深圳前沿科技",
			NameEN:         "Shenzhen Frontier Tech",
			Category:       "Electronics",
			MOQ:            1000,
			Rating:         4.9,
			Location:       "广东深圳",
			Certifications: []string{"ISO9001", "CE", "RoHS"},
		},
		{
			ID:             "factory-003",
			Name:           "东莞精工模具",
			NameEN:         "Dongguan Precision Mold",
			Category:       "Plastic Products",
			MOQ:            300,
			Rating:         4.7,
			Location:       "广东东莞",
			Certifications: []string{"ISO9001", "BSCI"},
		},
	}
	sortByRating(c)
	return c
}
