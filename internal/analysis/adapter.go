// Package analysis turns a reference video into a ProductAnalysis by way of
// a frame provider and a vision-language model.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kiranshivaraju/quotehunter/internal/frames"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

// ErrFrameAcquisition is the one analysis failure shown to the requester.
var ErrFrameAcquisition = errors.New("frame acquisition failed")

const (
	// UnparsedProductName is used when the model reply has no usable JSON.
	UnparsedProductName = "Unidentified product"
	// DefaultCategory is applied when the reply omits a category.
	DefaultCategory = "General"

	unparsedConfidence = 0.3
	defaultConfidence  = 0.5

	maxNameBytes     = 200
	maxCategoryBytes = 120
	maxItemBytes     = 200
	maxListItems     = 10
	maxAdvisoryBytes = 2000
)

// Outcome tags how an AnalysisResult was produced.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeUnparsed Outcome = "unparsed"
	OutcomeDemo     Outcome = "demo"
	OutcomeError    Outcome = "error"
)

// AnalysisResult is the tagged result of analyzing one reference.
// Analysis is populated for every outcome except OutcomeError.
type AnalysisResult struct {
	Outcome  Outcome
	Analysis models.ProductAnalysis
	Err      error
}

// Success is false only when no analysis could be produced at all.
func (r AnalysisResult) Success() bool { return r.Outcome != OutcomeError }

// Adapter coordinates frame acquisition and vision interpretation.
type Adapter struct {
	frames        frames.Provider
	vision        models.VisionProvider
	frameTimeout  time.Duration
	visionTimeout time.Duration
	maxTokens     int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithFrameTimeout bounds each frame acquisition.
func WithFrameTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.frameTimeout = d }
}

// WithVisionTimeout bounds each vision call.
func WithVisionTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.visionTimeout = d }
}

// WithMaxTokens caps the length of the model reply.
func WithMaxTokens(n int) Option {
	return func(a *Adapter) { a.maxTokens = n }
}

// NewAdapter creates an Adapter. Timeouts default to 30s for frames and 60s
// for vision.
func NewAdapter(fp frames.Provider, vp models.VisionProvider, opts ...Option) *Adapter {
	a := &Adapter{
		frames:        fp,
		vision:        vp,
		frameTimeout:  30 * time.Second,
		visionTimeout: 60 * time.Second,
		maxTokens:     1000,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs Frames then Interpret.
func (a *Adapter) Analyze(ctx context.Context, reference string) AnalysisResult {
	fs, err := a.Frames(ctx, reference)
	if err != nil {
		return AnalysisResult{Outcome: OutcomeError, Err: err}
	}
	return a.Interpret(ctx, reference, fs)
}

// Frames acquires frames for reference. Any failure, including an empty
// result, is wrapped with ErrFrameAcquisition.
func (a *Adapter) Frames(ctx context.Context, reference string) ([]models.Frame, error) {
	fctx, cancel := context.WithTimeout(ctx, a.frameTimeout)
	defer cancel()

	fs, err := a.frames.Frames(fctx, reference)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFrameAcquisition, a.frames.Name(), err)
	}
	if len(fs) == 0 {
		return nil, fmt.Errorf("%w: %s returned no frames", ErrFrameAcquisition, a.frames.Name())
	}
	return fs, nil
}

// Interpret asks the vision provider to describe the product in fs. A failed
// vision call yields the demonstration record; an unusable reply yields a
// low-confidence placeholder carrying the raw text. Only cancellation of ctx
// itself produces OutcomeError.
func (a *Adapter) Interpret(ctx context.Context, reference string, fs []models.Frame) AnalysisResult {
	vctx, cancel := context.WithTimeout(ctx, a.visionTimeout)
	defer cancel()

	withBytes := 0
	for _, f := range fs {
		if len(f.Data) > 0 {
			withBytes++
		}
	}

	resp, err := a.vision.Complete(vctx, models.VisionRequest{
		System:    SystemPrompt,
		User:      UserPrompt(reference, withBytes),
		Frames:    fs,
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		if ctx.Err() != nil {
			return AnalysisResult{Outcome: OutcomeError, Err: ctx.Err()}
		}
		slog.Warn("vision call failed, using demo analysis",
			"provider", a.vision.Name(), "reference", reference, "error", err)
		return AnalysisResult{Outcome: OutcomeDemo, Analysis: DemoAnalysis(), Err: err}
	}

	analysis, ok := ParseAnalysis(resp.Text)
	if !ok {
		slog.Warn("vision reply not parseable", "provider", a.vision.Name(), "reference", reference)
		return AnalysisResult{Outcome: OutcomeUnparsed, Analysis: analysis}
	}
	return AnalysisResult{Outcome: OutcomeOK, Analysis: analysis}
}

// rawAnalysis is the reply contract. Lists and confidence are lenient because
// models drift between strings, numbers and arrays.
type rawAnalysis struct {
	ProductName         string     `json:"product_name"`
	Category            string     `json:"category"`
	Features            stringList `json:"features"`
	Materials           stringList `json:"materials"`
	EstimatedDimensions string     `json:"estimated_dimensions"`
	TargetAudience      string     `json:"target_audience"`
	SellingPoints       stringList `json:"selling_points"`
	EstimatedPriceRange string     `json:"estimated_price_range"`
	SourcingDifficulty  string     `json:"sourcing_difficulty"`
	SourcingAdvice      string     `json:"sourcing_advice"`
	Confidence          flexFloat  `json:"confidence"`
}

// ParseAnalysis extracts and validates an analysis from a model reply. When
// it returns false the analysis is the unparsed placeholder.
func ParseAnalysis(text string) (models.ProductAnalysis, bool) {
	obj, found := ExtractJSON(text)
	if !found {
		return unparsed(text), false
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return unparsed(text), false
	}
	name := strings.TrimSpace(raw.ProductName)
	if name == "" {
		return unparsed(text), false
	}

	analysis := models.ProductAnalysis{
		ProductName:         truncateString(name, maxNameBytes),
		Category:            truncateString(strings.TrimSpace(raw.Category), maxCategoryBytes),
		Features:            cleanList(raw.Features),
		Materials:           cleanList(raw.Materials),
		EstimatedDimensions: truncateString(strings.TrimSpace(raw.EstimatedDimensions), maxItemBytes),
		TargetAudience:      truncateString(strings.TrimSpace(raw.TargetAudience), maxItemBytes),
		SellingPoints:       cleanList(raw.SellingPoints),
		EstimatedPriceRange: truncateString(strings.TrimSpace(raw.EstimatedPriceRange), maxItemBytes),
		SourcingDifficulty:  normalizeDifficulty(raw.SourcingDifficulty),
		Confidence:          defaultConfidence,
		Advisory:            truncateString(strings.TrimSpace(raw.SourcingAdvice), maxAdvisoryBytes),
		RawText:             text,
		Provenance:          models.ProvenanceVision,
	}
	if analysis.Category == "" {
		analysis.Category = DefaultCategory
	}
	if raw.Confidence.set {
		analysis.Confidence = clamp(raw.Confidence.value)
	}
	return analysis, true
}

func unparsed(text string) models.ProductAnalysis {
	return models.ProductAnalysis{
		ProductName:        UnparsedProductName,
		Category:           DefaultCategory,
		Features:           []string{},
		Materials:          []string{},
		SourcingDifficulty: models.DifficultyMedium,
		Confidence:         unparsedConfidence,
		RawText:            text,
		Provenance:         models.ProvenanceUnparsed,
	}
}

func normalizeDifficulty(s string) string {
	switch d := strings.ToLower(strings.TrimSpace(s)); d {
	case models.DifficultyLow, models.DifficultyMedium, models.DifficultyHigh:
		return d
	default:
		return models.DifficultyMedium
	}
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, truncateString(item, maxItemBytes))
		if len(out) == maxListItems {
			break
		}
	}
	return out
}

func clamp(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// stringList accepts either a JSON array of strings or a single string.
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	var many []string
	if err := json.Unmarshal(b, &many); err == nil {
		*l = many
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	if one != "" {
		*l = []string{one}
	}
	return nil
}

// flexFloat accepts a number or a numeric string such as "0.8" or "85%".
// Anything else, including NaN and infinities, leaves it unset.
type flexFloat struct {
	value float64
	set   bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		percent := strings.HasSuffix(s, "%")
		n, err = strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return nil
		}
		if percent {
			n /= 100
		}
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	f.value, f.set = n, true
	return nil
}

// truncateString truncates s to maxBytes without splitting UTF-8 runes.
func truncateString(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
