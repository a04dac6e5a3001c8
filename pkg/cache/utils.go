package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// FetchKey builds a deterministic cache key for an HTTP GET. Query parameters
// are sorted so two calls with the same params in different order share one
// entry.
func FetchKey(rawURL string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(rawURL)
	sb.WriteString("?")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString("&")
		}
		sb.WriteString(url.QueryEscape(k))
		sb.WriteString("=")
		sb.WriteString(url.QueryEscape(params[k]))
	}

	sum := sha1.Sum([]byte(sb.String()))
	return "http:" + hex.EncodeToString(sum[:])
}
