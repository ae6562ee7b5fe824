package cache

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MatchKey is keyed on the normalized category label so "Electronics" and
// " electronics " share an entry.
func MatchKey(category string) string {
	return fmt.Sprintf("match:%s", strings.ToLower(strings.Join(strings.Fields(category), " ")))
}

func StatusKey(requestID uuid.UUID) string {
	return fmt.Sprintf("status:%s", requestID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

func CardKey(requestID uuid.UUID) string {
	return fmt.Sprintf("card:%s", requestID)
}
