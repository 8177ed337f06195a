package helpers

import (
	"net/http"
	"strings"
)

// NormaliseHeaders flattens h into a map keyed by lower-cased header name.
// Repeated values are joined with ", ".
func NormaliseHeaders(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for k, v := range h {
		key := strings.ToLower(k)
		if prev, found := headers[key]; found {
			v = append([]string{prev}, v...)
		}
		headers[key] = strings.Join(v, ", ")
	}
	return headers
}

// LowerHeaders returns a copy of h with lower-cased names.
func LowerHeaders(h map[string]string) map[string]string {
	headers := make(map[string]string, len(h))
	for k, v := range h {
		key := strings.ToLower(k)
		if prev, found := headers[key]; found {
			v = prev + ", " + v
		}
		headers[key] = v
	}
	return headers
}
