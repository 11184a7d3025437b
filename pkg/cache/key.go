package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// KeyPrefix namespaces every key written by this package.
const KeyPrefix = "notion"

// Key identifies one cached GET response.
type Key struct {
	// Scope separates integrations sharing one Redis (see ScopeForToken).
	Scope string

	// Path is the request path, e.g. "/v1/blocks/<id>/children".
	Path string

	// Query holds the request's query parameters. Empty values are ignored.
	Query url.Values
}

// String renders the Redis key. Query parameters are sorted by name.
//
//	notion:a1b2c3d4:v1/blocks/abc/children?page_size=100&start_cursor=c2
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(scopePrefix(k.Scope))
	b.WriteString(strings.Trim(k.Path, "/"))

	query := url.Values{}
	for name, values := range k.Query {
		if len(values) > 0 && values[0] != "" {
			query.Set(name, values[0])
		}
	}
	if len(query) > 0 {
		b.WriteString("?")
		b.WriteString(query.Encode())
	}
	return b.String()
}

// scopePrefix is the key prefix shared by all entries of one scope.
func scopePrefix(scope string) string {
	if scope == "" {
		return KeyPrefix + ":"
	}
	return KeyPrefix + ":" + scope + ":"
}

// ScopeForToken derives a short, non-reversible scope from an integration
// token.
func ScopeForToken(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:4])
}
