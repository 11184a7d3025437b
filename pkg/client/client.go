// Package client provides the Notion API client used by the exporter, with
// request pacing, an optional Redis response cache, error classification,
// bounded retry and target type resolution.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/notion-export/pkg/cache"
	"github.com/Sternrassler/notion-export/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the public Notion API endpoint.
	DefaultBaseURL = "https://api.notion.com"

	// DefaultNotionVersion is the API version the payload types follow.
	DefaultNotionVersion = "2022-06-28"

	// MaxPageSize is the largest page size Notion accepts.
	MaxPageSize = 100
)

// RemoteClient is the contract the export pipeline consumes. Each method is
// a single remote call; wrap with WithRetry for transient failure handling.
type RemoteClient interface {
	// QueryDatabase returns one page of a database query.
	QueryDatabase(ctx context.Context, databaseID string, req QueryRequest) (*QueryResponse, error)

	// RetrieveDatabase returns a database object including its schema.
	RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error)

	// RetrievePage returns a page object.
	RetrievePage(ctx context.Context, pageID string) (*Page, error)

	// ListBlockChildren returns one page of a block's children.
	ListBlockChildren(ctx context.Context, blockID, cursor string) (*BlockList, error)
}

// Client is the HTTP implementation of RemoteClient.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	cache       *cache.Store // nil when caching is disabled
	cacheScope  string
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Token is the integration secret (REQUIRED)
	Token string

	// BaseURL overrides the API endpoint (tests, proxies)
	BaseURL string

	// NotionVersion is sent as the Notion-Version header
	NotionVersion string

	// UserAgent header
	UserAgent string

	// Timeout per HTTP request
	Timeout time.Duration

	// Redis enables the response cache and a shared 429 cooldown (optional)
	Redis *redis.Client

	// CacheTTL for GET responses; 0 disables caching even with Redis
	CacheTTL time.Duration

	// RequestsPerSecond paces outgoing requests; 0 disables pacing
	RequestsPerSecond float64
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(token string) Config {
	return Config{
		Token:             token,
		BaseURL:           DefaultBaseURL,
		NotionVersion:     DefaultNotionVersion,
		UserAgent:         "notion-export/0.1.0",
		Timeout:           30 * time.Second,
		RequestsPerSecond: ratelimit.DefaultRequestsPerSecond,
	}
}

// New creates a new Notion client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("notion token is required")
	}
	if cfg.CacheTTL < 0 {
		return nil, fmt.Errorf("cache_ttl must be >= 0 (got %s)", cfg.CacheTTL)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.NotionVersion == "" {
		cfg.NotionVersion = DefaultNotionVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "notion-client").Logger()

	c := &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: ratelimit.NewTracker(cfg.Redis, cfg.RequestsPerSecond, logger),
		config:      cfg,
		logger:      logger,
	}
	if cfg.Redis != nil && cfg.CacheTTL > 0 {
		c.cache = cache.NewStore(cfg.Redis)
		c.cacheScope = cache.ScopeForToken(cfg.Token)
	}
	return c, nil
}

// QueryDatabase implements RemoteClient.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, req QueryRequest) (*QueryResponse, error) {
	if req.PageSize <= 0 || req.PageSize > MaxPageSize {
		req.PageSize = MaxPageSize
	}
	var out QueryResponse
	path := "/v1/databases/" + url.PathEscape(databaseID) + "/query"
	if err := c.do(ctx, http.MethodPost, "/v1/databases/{id}/query", path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetrieveDatabase implements RemoteClient.
func (c *Client) RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error) {
	var out Database
	path := "/v1/databases/" + url.PathEscape(databaseID)
	if err := c.do(ctx, http.MethodGet, "/v1/databases/{id}", path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetrievePage implements RemoteClient.
func (c *Client) RetrievePage(ctx context.Context, pageID string) (*Page, error) {
	var out Page
	path := "/v1/pages/" + url.PathEscape(pageID)
	if err := c.do(ctx, http.MethodGet, "/v1/pages/{id}", path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListBlockChildren implements RemoteClient.
func (c *Client) ListBlockChildren(ctx context.Context, blockID, cursor string) (*BlockList, error) {
	query := url.Values{"page_size": []string{strconv.Itoa(MaxPageSize)}}
	if cursor != "" {
		query.Set("start_cursor", cursor)
	}
	var out BlockList
	path := "/v1/blocks/" + url.PathEscape(blockID) + "/children"
	if err := c.do(ctx, http.MethodGet, "/v1/blocks/{id}/children", path, query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do performs one API call: pacing, cache lookup, request, classification,
// decode, cache store. route is the templated path used as metric label.
func (c *Client) do(ctx context.Context, method, route, path string, query url.Values, body, out any) error {
	startTime := time.Now()
	defer func() {
		notionRequestDuration.WithLabelValues(route).Observe(time.Since(startTime).Seconds())
	}()

	cacheKey := cache.Key{Scope: c.cacheScope, Path: path, Query: query}
	cacheable := c.cache != nil && method == http.MethodGet

	if cacheable {
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			if decodeErr := json.Unmarshal(entry.Body, out); decodeErr == nil {
				c.logger.Debug().Str("endpoint", path).Dur("age", entry.Age()).Msg("Cache hit")
				notionRequestsTotal.WithLabelValues(route, "cached").Inc()
				return nil
			}
		case !errors.Is(err, cache.ErrMiss):
			c.logger.Warn().Err(err).Str("endpoint", path).Msg("Cache get error")
		}
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		notionErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		notionRequestsTotal.WithLabelValues(route, "network_error").Inc()
		c.logger.Warn().Err(err).Str("endpoint", path).Msg("HTTP request failed")
		return &NotionError{Class: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		notionErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return &NotionError{StatusCode: resp.StatusCode, Class: ErrorClassNetwork, Message: "read body", Err: err}
	}

	notionRequestsTotal.WithLabelValues(route, strconv.Itoa(resp.StatusCode)).Inc()
	if err := c.rateLimiter.Observe(ctx, resp.StatusCode, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to record rate limit cooldown")
	}

	if resp.StatusCode >= 400 {
		apiErr := decodeError(resp, data)
		notionErrorsTotal.WithLabelValues(string(apiErr.Class)).Inc()
		c.logger.Debug().
			Str("endpoint", path).
			Int("status", resp.StatusCode).
			Str("error_class", string(apiErr.Class)).
			Str("code", apiErr.Code).
			Msg("Notion request error")
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", route, err)
	}

	if cacheable && resp.StatusCode == http.StatusOK {
		if err := c.cache.Put(ctx, cacheKey, data, c.config.CacheTTL); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	target := c.config.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Notion-Version", c.config.NotionVersion)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	return req, nil
}

// decodeError builds a NotionError from an error response. The body is
// Notion's {"object":"error","status":..,"code":..,"message":..} when present.
func decodeError(resp *http.Response, data []byte) *NotionError {
	apiErr := &NotionError{
		StatusCode: resp.StatusCode,
		Class:      ClassifyStatus(resp.StatusCode),
		Message:    strings.TrimSpace(string(data)),
		RetryAfter: ratelimit.ParseRetryAfter(resp.Header.Get("Retry-After")),
	}
	var parsed struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &parsed) == nil {
		apiErr.Code = parsed.Code
		if parsed.Message != "" {
			apiErr.Message = parsed.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}
	return apiErr
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// PurgeCache drops every response this client's token has cached. It is a
// no-op when caching is disabled.
func (c *Client) PurgeCache(ctx context.Context) (int, error) {
	if c.cache == nil {
		return 0, nil
	}
	removed, err := c.cache.Purge(ctx, c.cacheScope)
	if err != nil {
		return removed, err
	}
	c.logger.Info().Int("keys", removed).Msg("Response cache purged")
	return removed, nil
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
