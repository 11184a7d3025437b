package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TargetKind is the resolved kind of an export target id.
type TargetKind int

const (
	// KindNotFound means the id is neither a database nor a page visible to
	// the integration.
	KindNotFound TargetKind = iota
	KindDatabase
	KindPage
)

// String implements fmt.Stringer.
func (k TargetKind) String() string {
	switch k {
	case KindDatabase:
		return "database"
	case KindPage:
		return "page"
	default:
		return "not_found"
	}
}

// Resolver determines whether an id names a database or a page by probing.
// Results are cached for the resolver's lifetime, which is one export run.
type Resolver struct {
	client RemoteClient
	logger zerolog.Logger

	mu    sync.Mutex
	kinds map[string]TargetKind
}

// NewResolver creates a resolver probing through rc.
func NewResolver(rc RemoteClient) *Resolver {
	return &Resolver{
		client: rc,
		logger: log.With().Str("component", "resolver").Logger(),
		kinds:  make(map[string]TargetKind),
	}
}

// Resolve probes id as a database, then as a page. A not-found answer to
// both yields KindNotFound with a nil error. Authentication failures abort
// immediately without the second probe; any other failure propagates.
func (r *Resolver) Resolve(ctx context.Context, id string) (TargetKind, error) {
	r.mu.Lock()
	kind, ok := r.kinds[id]
	r.mu.Unlock()
	if ok {
		return kind, nil
	}

	kind, err := r.probe(ctx, id)
	if err != nil {
		return KindNotFound, err
	}

	r.mu.Lock()
	r.kinds[id] = kind
	r.mu.Unlock()

	notionResolvedTotal.WithLabelValues(kind.String()).Inc()
	r.logger.Info().Str("target_id", id).Str("kind", kind.String()).Msg("Target resolved")
	return kind, nil
}

func (r *Resolver) probe(ctx context.Context, id string) (TargetKind, error) {
	_, err := r.client.RetrieveDatabase(ctx, id)
	switch {
	case err == nil:
		return KindDatabase, nil
	case !IsNotFound(err) && !isWrongKind(err):
		return KindNotFound, fmt.Errorf("probe %s as database: %w", id, err)
	}

	_, err = r.client.RetrievePage(ctx, id)
	switch {
	case err == nil:
		return KindPage, nil
	case IsNotFound(err) || isWrongKind(err):
		return KindNotFound, nil
	default:
		return KindNotFound, fmt.Errorf("probe %s as page: %w", id, err)
	}
}

// isWrongKind reports the 400 validation_error Notion returns when an id of
// one object type is used with another type's endpoint.
func isWrongKind(err error) bool {
	var ne *NotionError
	return errors.As(err, &ne) && ne.Class == ErrorClassClient && ne.Code == "validation_error"
}
