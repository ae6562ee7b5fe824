package middleware

import (
	"net/http"
	"strings"

	"github.com/kiranshivaraju/quotehunter/internal/api/response"
)

// Identity headers set by the transport in front of the API.
const (
	HeaderRequesterID   = "X-Requester-ID"
	HeaderRequesterName = "X-Requester-Name"
)

// Identity copies the requester headers into the request context.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderRequesterID))
		if id != "" {
			name := strings.TrimSpace(r.Header.Get(HeaderRequesterName))
			if name == "" {
				name = id
			}
			r = r.WithContext(SetRequester(r.Context(), Requester{ID: id, Name: name}))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRequester rejects requests that carry no requester identity.
func RequireRequester(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetRequester(r); !ok {
			response.Error(w, http.StatusUnauthorized,
				"MISSING_REQUESTER", HeaderRequesterID+" header is required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
