package cache

import (
	"net/url"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "path only",
			key:  Key{Path: "/v1/pages/abc/"},
			want: "notion:v1/pages/abc",
		},
		{
			name: "scoped path",
			key:  Key{Scope: "deadbeef", Path: "/v1/databases/db1"},
			want: "notion:deadbeef:v1/databases/db1",
		},
		{
			name: "query sorted by name",
			key: Key{
				Path: "/v1/blocks/b1/children",
				Query: url.Values{
					"start_cursor": []string{"c2"},
					"page_size":    []string{"100"},
				},
			},
			want: "notion:v1/blocks/b1/children?page_size=100&start_cursor=c2",
		},
		{
			name: "empty values skipped",
			key: Key{
				Path:  "/v1/blocks/b1/children",
				Query: url.Values{"start_cursor": []string{""}},
			},
			want: "notion:v1/blocks/b1/children",
		},
		{
			name: "cursor escaped",
			key: Key{
				Path:  "/v1/blocks/b1/children",
				Query: url.Values{"start_cursor": []string{"a&b"}},
			},
			want: "notion:v1/blocks/b1/children?start_cursor=a%26b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScopeForToken(t *testing.T) {
	if ScopeForToken("") != "" {
		t.Error("empty token should have empty scope")
	}
	a := ScopeForToken("secret_a")
	if a == ScopeForToken("secret_b") {
		t.Error("different tokens should have different scopes")
	}
	if len(a) != 8 {
		t.Errorf("scope length = %d, want 8", len(a))
	}
	if a != ScopeForToken("secret_a") {
		t.Error("scope should be stable")
	}
}
