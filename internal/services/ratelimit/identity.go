package ratelimit

import (
	"net/http"
	"strings"
)

// UnknownClient is used when the request carries no forwarded address.
const UnknownClient = "unknown"

// ClientIdentity returns the first X-Forwarded-For value, or UnknownClient.
func ClientIdentity(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if idx := strings.Index(xff, ","); idx != -1 {
		xff = xff[:idx]
	}
	if id := strings.TrimSpace(xff); id != "" {
		return id
	}
	return UnknownClient
}
