package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/notion-export/internal/testutil"
	"github.com/Sternrassler/notion-export/pkg/client"
	"github.com/redis/go-redis/v9"
)

const testToken = "secret_test"

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   14, // one DB per package, tests run in parallel
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := rdb.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		rdb.FlushDB(context.Background())
		rdb.Close()
	})

	return rdb
}

func newTestClient(t *testing.T, mock *testutil.MockNotion) *client.Client {
	t.Helper()
	cfg := client.DefaultConfig(testToken)
	cfg.BaseURL = mock.URL()
	cfg.RequestsPerSecond = 0
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      client.Config
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			config: client.DefaultConfig("secret_abc"),
		},
		{
			name:        "missing token",
			config:      client.DefaultConfig("  "),
			expectError: true,
			errorMsg:    "notion token is required",
		},
		{
			name: "negative cache ttl",
			config: client.Config{
				Token:    "secret_abc",
				CacheTTL: -time.Second,
			},
			expectError: true,
			errorMsg:    "cache_ttl must be >= 0",
		},
		{
			name:   "zero values filled in",
			config: client.Config{Token: "secret_abc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := client.New(tt.config)
			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("error = %q, want it to contain %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			c.Close()
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := client.DefaultConfig("secret_abc")

	if cfg.BaseURL != client.DefaultBaseURL {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.NotionVersion != "2022-06-28" {
		t.Errorf("NotionVersion = %q", cfg.NotionVersion)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.RequestsPerSecond <= 0 {
		t.Error("RequestsPerSecond should pace requests by default")
	}
}

func TestRequestHeaders(t *testing.T) {
	mock := testutil.NewMockNotion(testToken)
	defer mock.Close()
	mock.AddPage(testutil.PageJSON("p1", nil, time.Now()))

	c := newTestClient(t, mock)
	if _, err := c.RetrievePage(context.Background(), "p1"); err != nil {
		t.Fatalf("RetrievePage error: %v", err)
	}

	headers := mock.GetLastRequestHeader()
	if got := headers.Get("Authorization"); got != "Bearer "+testToken {
		t.Errorf("Authorization = %q", got)
	}
	if got := headers.Get("Notion-Version"); got != client.DefaultNotionVersion {
		t.Errorf("Notion-Version = %q", got)
	}
	if got := headers.Get("User-Agent"); !strings.HasPrefix(got, "notion-export/") {
		t.Errorf("User-Agent = %q", got)
	}
}

func TestQueryDatabase_Pagination(t *testing.T) {
	mock := testutil.NewMockNotion(testToken)
	defer mock.Close()
	mock.SetPageSize(2)

	now := time.Now()
	mock.AddDatabase(testutil.DatabaseJSON("db1", "Docs", nil),
		testutil.PageJSON("a", testutil.JSON{"Name": testutil.TitleProp("A")}, now),
		testutil.PageJSON("b", testutil.JSON{"Name": testutil.TitleProp("B")}, now),
		testutil.PageJSON("c", testutil.JSON{"Name": testutil.TitleProp("C")}, now),
	)

	c := newTestClient(t, mock)
	ctx := context.Background()
	req := client.QueryRequest{Sorts: []client.Sort{{Property: "Order", Direction: "ascending"}}}

	first, err := c.QueryDatabase(ctx, "db1", req)
	if err != nil {
		t.Fatalf("QueryDatabase error: %v", err)
	}
	if len(first.Results) != 2 || !first.HasMore || first.NextCursor == "" {
		t.Fatalf("first batch = %d results, has_more=%v cursor=%q", len(first.Results), first.HasMore, first.NextCursor)
	}

	var body struct {
		PageSize int           `json:"page_size"`
		Sorts    []client.Sort `json:"sorts"`
	}
	if err := json.Unmarshal(mock.GetLastRequestBody(), &body); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	if body.PageSize != client.MaxPageSize {
		t.Errorf("page_size = %d, want %d", body.PageSize, client.MaxPageSize)
	}
	if len(body.Sorts) != 1 || body.Sorts[0].Property != "Order" {
		t.Errorf("sorts = %+v", body.Sorts)
	}

	req.StartCursor = first.NextCursor
	second, err := c.QueryDatabase(ctx, "db1", req)
	if err != nil {
		t.Fatalf("QueryDatabase error: %v", err)
	}
	if len(second.Results) != 1 || second.HasMore || second.Results[0].ID != "c" {
		t.Errorf("second batch = %+v", second)
	}
	if got := client.PlainText(second.Results[0].Properties["Name"].Title); got != "C" {
		t.Errorf("title = %q, want C", got)
	}
}

func TestListBlockChildren(t *testing.T) {
	mock := testutil.NewMockNotion(testToken)
	defer mock.Close()
	mock.SetChildren("page",
		testutil.HeadingJSON("h", 1, "Intro"),
		testutil.ParagraphJSON("p", "Body"),
		testutil.ChildPageJSON("c", "Child"),
	)

	c := newTestClient(t, mock)
	list, err := c.ListBlockChildren(context.Background(), "page", "")
	if err != nil {
		t.Fatalf("ListBlockChildren error: %v", err)
	}
	if len(list.Results) != 3 {
		t.Fatalf("got %d blocks, want 3", len(list.Results))
	}
	if list.Results[0].HeadingLevel() != 1 || list.Results[1].Text() != "Body" {
		t.Errorf("unexpected blocks: %q %q", list.Results[0].Text(), list.Results[1].Text())
	}
	if !list.Results[2].HasChildren || list.Results[2].ChildTitle() != "Child" {
		t.Errorf("child page block decoded wrong")
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		resp      testutil.MockResponse
		wantClass client.ErrorClass
		wantCode  string
	}{
		{"unauthorized", testutil.NewErrorResponse(http.StatusUnauthorized, "unauthorized", "API token is invalid."), client.ErrorClassAuth, "unauthorized"},
		{"restricted", testutil.NewErrorResponse(http.StatusForbidden, "restricted_resource", "no access"), client.ErrorClassAuth, "restricted_resource"},
		{"not found", testutil.NewErrorResponse(http.StatusNotFound, "object_not_found", "missing"), client.ErrorClassNotFound, "object_not_found"},
		{"validation", testutil.NewErrorResponse(http.StatusBadRequest, "validation_error", "bad"), client.ErrorClassClient, "validation_error"},
		{"rate limited", testutil.NewRateLimitResponse("1"), client.ErrorClassRateLimit, "rate_limited"},
		{"server", testutil.NewServerErrorResponse(), client.ErrorClassServer, "internal_server_error"},
		{"bare gateway error", testutil.MockResponse{StatusCode: http.StatusBadGateway, Body: "<html>bad gateway</html>"}, client.ErrorClassServer, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockNotion(testToken)
			defer mock.Close()
			mock.QueueResponses("/v1/pages/p1", tt.resp)

			c := newTestClient(t, mock)
			_, err := c.RetrievePage(context.Background(), "p1")

			var ne *client.NotionError
			if !errors.As(err, &ne) {
				t.Fatalf("err = %v, want *NotionError", err)
			}
			if ne.Class != tt.wantClass {
				t.Errorf("Class = %q, want %q", ne.Class, tt.wantClass)
			}
			if ne.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", ne.Code, tt.wantCode)
			}
			if ne.StatusCode != tt.resp.StatusCode {
				t.Errorf("StatusCode = %d, want %d", ne.StatusCode, tt.resp.StatusCode)
			}
		})
	}
}

func TestRateLimitResponse_RetryAfter(t *testing.T) {
	mock := testutil.NewMockNotion(testToken)
	defer mock.Close()
	mock.QueueResponses("/v1/pages/p1", testutil.NewRateLimitResponse("2"))

	c := newTestClient(t, mock)
	_, err := c.RetrievePage(context.Background(), "p1")

	var ne *client.NotionError
	if !errors.As(err, &ne) {
		t.Fatalf("err = %v, want *NotionError", err)
	}
	if ne.RetryAfter != 2*time.Second {
		t.Errorf("RetryAfter = %v, want 2s", ne.RetryAfter)
	}
}

func TestNetworkError(t *testing.T) {
	mock := testutil.NewMockNotion(testToken)
	url := mock.URL()
	mock.Close()

	cfg := client.DefaultConfig(testToken)
	cfg.BaseURL = url
	cfg.RequestsPerSecond = 0
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	_, err = c.RetrievePage(context.Background(), "p1")
	if client.ClassOf(err) != client.ErrorClassNetwork {
		t.Errorf("ClassOf(%v) = %q, want network", err, client.ClassOf(err))
	}
	if !client.IsRetryable(err) {
		t.Error("network errors should be retryable")
	}
}

func TestWithRetry_RecoversFromServerErrors(t *testing.T) {
	mock := testutil.NewMockNotion(testToken)
	defer mock.Close()
	mock.AddPage(testutil.PageJSON("p1", nil, time.Now()))
	mock.QueueResponses("/v1/pages/p1", testutil.NewServerErrorResponse(), testutil.NewRateLimitResponse("0.01"))

	rc := client.WithRetry(newTestClient(t, mock), client.RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   10 * time.Millisecond,
	})

	page, err := rc.RetrievePage(context.Background(), "p1")
	if err != nil {
		t.Fatalf("RetrievePage error: %v", err)
	}
	if page.ID != "p1" {
		t.Errorf("page.ID = %q", page.ID)
	}
	if got := mock.GetPathCount("/v1/pages/p1"); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
}

func TestWithRetry_NoRetryOnNotFound(t *testing.T) {
	mock := testutil.NewMockNotion(testToken)
	defer mock.Close()

	rc := client.WithRetry(newTestClient(t, mock), client.RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
	})

	_, err := rc.RetrievePage(context.Background(), "missing")
	if !client.IsNotFound(err) {
		t.Errorf("err = %v, want not_found", err)
	}
	if got := mock.GetPathCount("/v1/pages/missing"); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestResolver_AgainstMockServer(t *testing.T) {
	mock := testutil.NewMockNotion(testToken)
	defer mock.Close()
	mock.AddDatabase(testutil.DatabaseJSON("db1", "Docs", nil))
	mock.AddPage(testutil.PageJSON("p1", nil, time.Now()))

	r := client.NewResolver(newTestClient(t, mock))
	ctx := context.Background()

	tests := map[string]client.TargetKind{
		"db1":     client.KindDatabase,
		"p1":      client.KindPage,
		"unknown": client.KindNotFound,
	}
	for id, want := range tests {
		got, err := r.Resolve(ctx, id)
		if err != nil {
			t.Fatalf("Resolve(%s) error: %v", id, err)
		}
		if got != want {
			t.Errorf("Resolve(%s) = %v, want %v", id, got, want)
		}
	}
}

func TestResolver_BadTokenIsAuthError(t *testing.T) {
	mock := testutil.NewMockNotion("other_token")
	defer mock.Close()

	_, err := client.NewResolver(newTestClient(t, mock)).Resolve(context.Background(), "db1")
	if !client.IsAuth(err) {
		t.Errorf("err = %v, want auth class", err)
	}
	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("requests = %d, want 1 (no page probe after auth failure)", got)
	}
}

func TestCacheHit(t *testing.T) {
	rdb := setupTestRedis(t)

	mock := testutil.NewMockNotion(testToken)
	defer mock.Close()
	mock.AddPage(testutil.PageJSON("p1", nil, time.Now()))

	cfg := client.DefaultConfig(testToken)
	cfg.BaseURL = mock.URL()
	cfg.RequestsPerSecond = 0
	cfg.Redis = rdb
	cfg.CacheTTL = time.Minute
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		page, err := c.RetrievePage(ctx, "p1")
		if err != nil {
			t.Fatalf("RetrievePage error: %v", err)
		}
		if page.ID != "p1" {
			t.Fatalf("page.ID = %q", page.ID)
		}
	}
	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("requests = %d, want 1 (later calls served from cache)", got)
	}

	if removed, err := c.PurgeCache(ctx); err != nil || removed != 1 {
		t.Fatalf("PurgeCache() = %d, %v; want 1, nil", removed, err)
	}
	if _, err := c.RetrievePage(ctx, "p1"); err != nil {
		t.Fatalf("RetrievePage after purge: %v", err)
	}
	if got := mock.GetRequestCount(); got != 2 {
		t.Errorf("requests = %d, want 2 after purge", got)
	}
}

func TestPurgeCache_Disabled(t *testing.T) {
	c, err := client.New(client.DefaultConfig(testToken))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if removed, err := c.PurgeCache(context.Background()); err != nil || removed != 0 {
		t.Errorf("PurgeCache() = %d, %v; want 0, nil", removed, err)
	}
}
