// Package testutil provides testing utilities for the Notion exporter.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// MockResponse defines a canned response for a mock Notion endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// MockNotion is a configurable in-process Notion API server. Objects added
// with AddDatabase, AddPage and SetChildren are served with cursor
// pagination; SetHandler and QueueResponses override individual paths.
type MockNotion struct {
	server *httptest.Server
	mu     sync.RWMutex

	token     string
	pageSize  int
	databases map[string]JSON
	dbPages   map[string][]JSON
	pages     map[string]JSON
	children  map[string][]JSON
	handlers  map[string]http.HandlerFunc
	queued    map[string][]MockResponse

	// Tracking
	RequestCount      int
	PathCounts        map[string]int
	LastRequestHeader http.Header
	LastRequestBody   []byte
}

// NewMockNotion creates a mock server accepting the given integration token.
func NewMockNotion(token string) *MockNotion {
	mock := &MockNotion{
		token:      token,
		pageSize:   100,
		databases:  make(map[string]JSON),
		dbPages:    make(map[string][]JSON),
		pages:      make(map[string]JSON),
		children:   make(map[string][]JSON),
		handlers:   make(map[string]http.HandlerFunc),
		queued:     make(map[string][]MockResponse),
		PathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := readBody(r)

		mock.mu.Lock()
		mock.RequestCount++
		mock.PathCounts[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastRequestBody = body
		handler, hasHandler := mock.handlers[r.URL.Path]
		var queued *MockResponse
		if q := mock.queued[r.URL.Path]; len(q) > 0 {
			queued = &q[0]
			mock.queued[r.URL.Path] = q[1:]
		}
		mock.mu.Unlock()

		switch {
		case queued != nil:
			writeResponse(w, *queued)
		case hasHandler:
			handler(w, r)
		default:
			mock.defaultHandler(w, r, body)
		}
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockNotion) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockNotion) Close() {
	m.server.Close()
}

// SetPageSize caps the number of results served per page.
func (m *MockNotion) SetPageSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageSize = n
}

// AddDatabase registers a database and the pages its query returns.
func (m *MockNotion) AddDatabase(db JSON, pages ...JSON) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := db["id"].(string)
	m.databases[id] = db
	m.dbPages[id] = append(m.dbPages[id], pages...)
	for _, p := range pages {
		m.pages[p["id"].(string)] = p
	}
}

// AddPage registers a standalone page.
func (m *MockNotion) AddPage(page JSON) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page["id"].(string)] = page
}

// SetChildren sets the children of a block or page.
func (m *MockNotion) SetChildren(blockID string, blocks ...JSON) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.children[blockID] = blocks
}

// SetHandler sets a custom handler for a specific path.
func (m *MockNotion) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// QueueResponses makes the next len(resps) requests to path return resps in
// order before normal handling resumes.
func (m *MockNotion) QueueResponses(path string, resps ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued[path] = append(m.queued[path], resps...)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockNotion) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPathCount returns the number of requests made to path.
func (m *MockNotion) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PathCounts[path]
}

// GetLastRequestBody returns the body of the most recent request.
func (m *MockNotion) GetLastRequestBody() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestBody
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockNotion) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

// defaultHandler serves registered objects the way the Notion API does.
func (m *MockNotion) defaultHandler(w http.ResponseWriter, r *http.Request, body []byte) {
	if r.Header.Get("Authorization") != "Bearer "+m.token {
		writeResponse(w, NewErrorResponse(http.StatusUnauthorized, "unauthorized", "API token is invalid."))
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch {
	case len(parts) == 4 && parts[1] == "databases" && parts[3] == "query" && r.Method == http.MethodPost:
		if _, ok := m.databases[parts[2]]; !ok {
			writeResponse(w, notFound(parts[2]))
			return
		}
		var req struct {
			StartCursor string `json:"start_cursor"`
			PageSize    int    `json:"page_size"`
		}
		_ = json.Unmarshal(body, &req)
		writeJSON(w, m.paginate(m.dbPages[parts[2]], req.StartCursor, req.PageSize))

	case len(parts) == 3 && parts[1] == "databases" && r.Method == http.MethodGet:
		db, ok := m.databases[parts[2]]
		if !ok {
			writeResponse(w, notFound(parts[2]))
			return
		}
		writeJSON(w, db)

	case len(parts) == 3 && parts[1] == "pages" && r.Method == http.MethodGet:
		page, ok := m.pages[parts[2]]
		if !ok {
			writeResponse(w, notFound(parts[2]))
			return
		}
		writeJSON(w, page)

	case len(parts) == 4 && parts[1] == "blocks" && parts[3] == "children" && r.Method == http.MethodGet:
		size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
		writeJSON(w, m.paginate(m.children[parts[2]], r.URL.Query().Get("start_cursor"), size))

	default:
		writeResponse(w, NewErrorResponse(http.StatusBadRequest, "invalid_request_url", "Invalid request URL."))
	}
}

// paginate serves items[cursor:cursor+size]. Cursors are item offsets.
func (m *MockNotion) paginate(items []JSON, cursor string, size int) JSON {
	if size <= 0 || size > m.pageSize {
		size = m.pageSize
	}
	start, _ := strconv.Atoi(cursor)
	if start > len(items) {
		start = len(items)
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}

	results := items[start:end]
	if results == nil {
		results = []JSON{}
	}
	out := JSON{
		"object":      "list",
		"results":     results,
		"has_more":    end < len(items),
		"next_cursor": nil,
	}
	if end < len(items) {
		out["next_cursor"] = strconv.Itoa(end)
	}
	return out
}

// NewErrorResponse creates a Notion error response.
func NewErrorResponse(status int, code, message string) MockResponse {
	body, _ := json.Marshal(JSON{"object": "error", "status": status, "code": code, "message": message})
	return MockResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewRateLimitResponse creates a 429 response with a Retry-After header.
func NewRateLimitResponse(retryAfter string) MockResponse {
	resp := NewErrorResponse(http.StatusTooManyRequests, "rate_limited", "You have been rate limited.")
	if retryAfter != "" {
		resp.Headers["Retry-After"] = retryAfter
	}
	return resp
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockResponse {
	return NewErrorResponse(http.StatusInternalServerError, "internal_server_error", "Unexpected error occurred.")
}

func notFound(id string) MockResponse {
	return NewErrorResponse(http.StatusNotFound, "object_not_found",
		"Could not find object with ID: "+id+".")
}

func readBody(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	data, _ := io.ReadAll(r.Body)
	return data
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}
