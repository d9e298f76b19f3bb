package verdict

import (
	"bytes"
	"encoding/json"
	"strings"
)

// denialMarkers are body phrases that indicate a denied request even when
// the status code is 2xx.
var denialMarkers = []string{
	"access denied",
	"forbidden",
	"unauthorized",
	"not authorized",
	"permission denied",
	"not allowed",
	"invalid token",
	"login required",
	"authentication required",
	"you do not have permission",
	"insufficient privileges",
	"requires authentication",
}

// markerWindow bounds how much of a body is searched for denial markers.
const markerWindow = 1024

// similaritySample is the number of leading bytes compared by similar.
const similaritySample = 256

func matchMarker(body []byte, extra []string) (string, bool) {
	if len(body) > markerWindow {
		body = body[:markerWindow]
	}
	lower := strings.ToLower(string(body))

	for _, markers := range [][]string{denialMarkers, extra} {
		for _, m := range markers {
			m = strings.ToLower(strings.TrimSpace(m))
			if m != "" && strings.Contains(lower, m) {
				return m, true
			}
		}
	}
	return "", false
}

func decodeJSON(body []byte) (any, bool) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, false
	}
	return v, true
}

// hollow reports whether a decoded JSON value carries no data: null, empty
// strings, zero, false, and containers holding only hollow values.
func hollow(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case float64:
		return v == 0
	case []any:
		for _, e := range v {
			if !hollow(e) {
				return false
			}
		}
		return true
	case map[string]any:
		for _, e := range v {
			if !hollow(e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// errorDocument reports whether v is an object with a non-empty top-level
// "error" or "errors" member.
func errorDocument(v any) bool {
	obj, ok := v.(map[string]any)
	if !ok {
		return false
	}
	for _, key := range []string{"error", "errors"} {
		if e, ok := obj[key]; ok && !hollow(e) {
			return true
		}
	}
	return false
}

func structured(contentType string, isJSON bool) bool {
	return isJSON || strings.Contains(contentType, "json") || strings.Contains(contentType, "xml")
}

func matchTemplate(size int, templates []string, tolerance int) (int, bool) {
	for _, t := range templates {
		n := len(bytes.TrimSpace([]byte(t)))
		if abs(size-n) <= tolerance {
			return n, true
		}
	}
	return 0, false
}

// similar reports whether two bodies have sizes within 20% of each other and
// agree on at least threshold of their leading bytes.
func similar(a, b []byte, threshold float64) bool {
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return false
	}

	if float64(abs(la-lb))/float64(max(la, lb)) > 0.2 {
		return false
	}
	if bytes.Equal(a, b) {
		return true
	}

	n := min(la, lb, similaritySample)
	matching := 0
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			matching++
		}
	}
	return float64(matching)/float64(n) >= threshold
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
