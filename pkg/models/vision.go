// Package models contains shared data models used across the quotehunter codebase.
package models

import (
	"context"
	"errors"
)

// Vision provider failures. Providers wrap these so callers can classify errors
// without importing a specific provider.
var (
	ErrVisionUnavailable     = errors.New("vision provider unavailable")
	ErrVisionTimeout         = errors.New("vision inference timeout")
	ErrVisionInvalidResponse = errors.New("vision provider returned invalid response")
)

// VisionProvider is the interface every vision-language integration implements.
// The pipeline never calls a specific provider directly; it is always injected.
type VisionProvider interface {
	// Complete sends one system/user instruction pair, with optional frames,
	// and returns the model's free-form text.
	Complete(ctx context.Context, req VisionRequest) (VisionResponse, error)
	// Name returns the provider identifier (e.g., "anthropic", "openai").
	Name() string
}

// VisionRequest is the input to a single vision-language call.
type VisionRequest struct {
	System    string
	User      string
	Frames    []Frame
	MaxTokens int
}

// VisionResponse is the raw text returned by the provider.
type VisionResponse struct {
	Text     string
	Model    string
	Provider string
}

// Frame is one representative still taken from a reference video.
// Data may be empty when the frame provider only knows the reference.
type Frame struct {
	Data      []byte `json:"-"`
	MediaType string `json:"media_type"`
	Source    string `json:"source"`
}
