package cache

import (
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces all catalog cache keys.
const KeyPrefix = "catalog"

// CacheKey identifies one cached page of one session.
type CacheKey struct {
	// Session is the browsing session that owns the entry.
	Session string

	// Endpoint is the collection path (e.g., "/api/v1/solutions/")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"skip": "0", "limit": "9"})
	QueryParams url.Values
}

// String generates a deterministic key.
// Format: catalog:<session>:endpoint:param1=val1:param2=val2
//
// Example:
//
//	catalog:3f2a...:api/v1/solutions:limit=9:skip=0:sort=name
func (k CacheKey) String() string {
	parts := []string{SessionPrefix(k.Session)}

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	keys := make([]string, 0, len(k.QueryParams))
	for key := range k.QueryParams {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		parts = append(parts, key+"="+strings.Join(k.QueryParams[key], ","))
	}

	return strings.Join(parts, ":")
}

// SessionPrefix returns the key prefix shared by all entries of a session.
func SessionPrefix(session string) string {
	if session == "" {
		session = "_"
	}
	return KeyPrefix + ":" + session
}
