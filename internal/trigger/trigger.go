// Package trigger decides whether an inbound chat message asks for a quote.
package trigger

import (
	"regexp"
	"strings"
)

// referencePattern matches the three accepted reference shapes: a profile
// video URL, a vm./vt. short link and a /t/ alias link.
var referencePattern = regexp.MustCompile(
	`https?://(?:www\.)?tiktok\.com/@[\w.-]+/video/\d+` +
		`|https?://(?:vm|vt)\.tiktok\.com/\w+` +
		`|https?://(?:www\.)?tiktok\.com/t/\w+`,
)

// Detect returns the leftmost reference URL in text.
func Detect(text string) (string, bool) {
	loc := referencePattern.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	return text[loc[0]:loc[1]], true
}

// InboundMessage is a chat message as delivered by the transport.
type InboundMessage struct {
	ID          string `json:"id"`
	ChannelID   string `json:"channel_id"`
	AuthorID    string `json:"author_id"`
	AuthorName  string `json:"author_name"`
	AuthorIsBot bool   `json:"author_is_bot"`
	Content     string `json:"content"`
}

// Detector filters messages before looking for a reference.
type Detector struct {
	selfID    string
	channelID string
}

// NewDetector ignores messages authored by selfID. When channelID is
// non-empty only messages from that channel are considered.
func NewDetector(selfID, channelID string) *Detector {
	return &Detector{selfID: selfID, channelID: channelID}
}

// Accepts reports whether m comes from a human in the watched channel.
func (d *Detector) Accepts(m InboundMessage) bool {
	if m.AuthorIsBot {
		return false
	}
	if d.selfID != "" && m.AuthorID == d.selfID {
		return false
	}
	if d.channelID != "" && m.ChannelID != d.channelID {
		return false
	}
	return true
}

// DetectMessage applies Accepts and then Detect.
func (d *Detector) DetectMessage(m InboundMessage) (string, bool) {
	if !d.Accepts(m) {
		return "", false
	}
	return Detect(strings.TrimSpace(m.Content))
}
