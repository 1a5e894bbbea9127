// Package traffic reads captured request/response samples and derives the
// observation window and per-endpoint groupings from them.
package traffic

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// Methods lists the HTTP methods a sample may carry, in canonical order.
var Methods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}

// ValidMethod reports whether m is one of Methods. Comparison is exact.
func ValidMethod(m string) bool {
	return slices.Contains(Methods, m)
}

// Sample is one captured request/response pair.
type Sample struct {
	Timestamp    time.Time       `json:"timestamp"`
	Method       string          `json:"method"`
	Path         string          `json:"path"`
	StatusCode   int             `json:"statusCode"`
	RequestBody  json.RawMessage `json:"requestBody,omitempty"`
	ResponseBody json.RawMessage `json:"responseBody,omitempty"`
}

// EndpointKey is the "METHOD path" key used to match samples against
// contract endpoints.
func (s Sample) EndpointKey() string {
	return EndpointKey(s.Method, s.Path)
}

// EndpointKey joins a method and path with a single space.
func EndpointKey(method, path string) string {
	return method + " " + path
}

// ParseEndpointKey splits a key produced by EndpointKey on its first space.
// Paths containing spaces survive the round trip.
func ParseEndpointKey(key string) (method, path string) {
	method, path, _ = strings.Cut(key, " ")
	return method, path
}
