package testutil

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/notion-export/pkg/client"
)

// Operation names used to key FakeRemote failures and call counts.
const (
	OpQuery    = "query"
	OpDatabase = "database"
	OpPage     = "page"
	OpChildren = "children"
)

// FakeRemote is an in-memory client.RemoteClient. It paginates with
// offset cursors, records call counts and the peak number of concurrent
// calls, and can fail selected calls.
type FakeRemote struct {
	// PageSize caps results per call; 0 means client.MaxPageSize.
	PageSize int

	// Delay is slept inside every call, to make overlap observable.
	Delay time.Duration

	mu        sync.Mutex
	databases map[string]client.Database
	dbPages   map[string][]client.Page
	pages     map[string]client.Page
	children  map[string][]client.Block
	always    map[string]error
	queued    map[string][]error
	calls     map[string]int
	inFlight  int
	peak      int
	queries   []client.QueryRequest
}

// NewFakeRemote creates an empty fake.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		databases: make(map[string]client.Database),
		dbPages:   make(map[string][]client.Page),
		pages:     make(map[string]client.Page),
		children:  make(map[string][]client.Block),
		always:    make(map[string]error),
		queued:    make(map[string][]error),
		calls:     make(map[string]int),
	}
}

// AddDatabase registers a database and the pages its query returns.
func (f *FakeRemote) AddDatabase(db client.Database, pages ...client.Page) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.databases[db.ID] = db
	f.dbPages[db.ID] = append(f.dbPages[db.ID], pages...)
	for _, p := range pages {
		f.pages[p.ID] = p
	}
}

// AddPage registers a standalone page.
func (f *FakeRemote) AddPage(p client.Page) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[p.ID] = p
}

// SetChildren sets the children of a block or page.
func (f *FakeRemote) SetChildren(blockID string, blocks ...client.Block) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.children[blockID] = blocks
}

// FailAlways makes every call of op on id fail with err.
func (f *FakeRemote) FailAlways(op, id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.always[op+":"+id] = err
}

// FailNext makes the next len(errs) calls of op on id fail in order.
func (f *FakeRemote) FailNext(op, id string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued[op+":"+id] = append(f.queued[op+":"+id], errs...)
}

// Calls returns how many times op was called on id.
func (f *FakeRemote) Calls(op, id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op+":"+id]
}

// PeakConcurrency returns the largest number of calls observed in flight.
func (f *FakeRemote) PeakConcurrency() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

// Queries returns the query requests received, in call order.
func (f *FakeRemote) Queries() []client.QueryRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]client.QueryRequest(nil), f.queries...)
}

func (f *FakeRemote) enter(ctx context.Context, op, id string) error {
	f.mu.Lock()
	key := op + ":" + id
	f.calls[key]++
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	var err error
	if q := f.queued[key]; len(q) > 0 {
		err = q[0]
		f.queued[key] = q[1:]
	} else if e, ok := f.always[key]; ok {
		err = e
	}
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.Delay):
		}
	}
	return err
}

func (f *FakeRemote) leave() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *FakeRemote) window(total int, cursor string) (start, end int, next string) {
	size := f.PageSize
	if size <= 0 {
		size = client.MaxPageSize
	}
	start, _ = strconv.Atoi(cursor)
	if start > total {
		start = total
	}
	end = start + size
	if end > total {
		end = total
	}
	if end < total {
		next = strconv.Itoa(end)
	}
	return start, end, next
}

// QueryDatabase implements client.RemoteClient.
func (f *FakeRemote) QueryDatabase(ctx context.Context, databaseID string, req client.QueryRequest) (*client.QueryResponse, error) {
	defer f.leave()
	if err := f.enter(ctx, OpQuery, databaseID); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, req)
	if _, ok := f.databases[databaseID]; !ok {
		return nil, notFoundError(databaseID)
	}
	all := f.dbPages[databaseID]
	start, end, next := f.window(len(all), req.StartCursor)
	return &client.QueryResponse{
		Results:    append([]client.Page(nil), all[start:end]...),
		NextCursor: next,
		HasMore:    next != "",
	}, nil
}

// RetrieveDatabase implements client.RemoteClient.
func (f *FakeRemote) RetrieveDatabase(ctx context.Context, databaseID string) (*client.Database, error) {
	defer f.leave()
	if err := f.enter(ctx, OpDatabase, databaseID); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	db, ok := f.databases[databaseID]
	if !ok {
		return nil, notFoundError(databaseID)
	}
	return &db, nil
}

// RetrievePage implements client.RemoteClient.
func (f *FakeRemote) RetrievePage(ctx context.Context, pageID string) (*client.Page, error) {
	defer f.leave()
	if err := f.enter(ctx, OpPage, pageID); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[pageID]
	if !ok {
		return nil, notFoundError(pageID)
	}
	return &p, nil
}

// ListBlockChildren implements client.RemoteClient.
func (f *FakeRemote) ListBlockChildren(ctx context.Context, blockID, cursor string) (*client.BlockList, error) {
	defer f.leave()
	if err := f.enter(ctx, OpChildren, blockID); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.children[blockID]
	start, end, next := f.window(len(all), cursor)
	return &client.BlockList{
		Results:    append([]client.Block(nil), all[start:end]...),
		NextCursor: next,
		HasMore:    next != "",
	}, nil
}

func notFoundError(id string) error {
	return &client.NotionError{
		StatusCode: 404,
		Class:      client.ErrorClassNotFound,
		Code:       "object_not_found",
		Message:    "Could not find object with ID: " + id + ".",
	}
}

// ServerError returns a retryable 500 error.
func ServerError() error {
	return &client.NotionError{StatusCode: 500, Class: client.ErrorClassServer, Code: "internal_server_error", Message: "Unexpected error occurred."}
}

// AuthError returns a 401 error.
func AuthError() error {
	return &client.NotionError{StatusCode: 401, Class: client.ErrorClassAuth, Code: "unauthorized", Message: "API token is invalid."}
}
