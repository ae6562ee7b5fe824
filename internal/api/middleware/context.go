package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const requesterKey contextKey = "requester"

// Requester is the identity supplied by the calling transport. It is passed
// through as-is; the API does not authenticate it.
type Requester struct {
	ID   string
	Name string
}

func SetRequester(ctx context.Context, r Requester) context.Context {
	return context.WithValue(ctx, requesterKey, r)
}

func GetRequester(r *http.Request) (Requester, bool) {
	req, ok := r.Context().Value(requesterKey).(Requester)
	return req, ok
}
