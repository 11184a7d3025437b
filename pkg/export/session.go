package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/notion-export/pkg/category"
	"github.com/Sternrassler/notion-export/pkg/client"
	"github.com/Sternrassler/notion-export/pkg/limiter"
	"github.com/Sternrassler/notion-export/pkg/render"
	"github.com/Sternrassler/notion-export/pkg/version"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
)

// ErrNotFound is returned when the target id is neither a database nor a
// page the integration can see.
var ErrNotFound = errors.New("export target not found")

// Category order names accepted by Config.CategoryOrder.
const (
	OrderFirstSeen    = "first_seen"
	OrderAlphabetical = "alphabetical"
	OrderSchema       = "schema"
	OrderExplicit     = "explicit"
)

// Config configures a Session.
type Config struct {
	Concurrency int
	MaxDepth    int
	HeadingBase int

	ExportProperty string
	SortProperty   string
	SortDirection  string

	// LatestOnly keeps only the latest version of same-titled pages and
	// subpage sections.
	LatestOnly bool

	// CategoryOrder is one of first_seen (default), alphabetical, schema or
	// explicit. schema uses the option order of the database's category
	// property.
	CategoryOrder     string
	CategoryExplicit  []string
	CollationLanguage string

	Retry client.RetryConfig

	OnProgress func(Progress)
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:   limiter.DefaultBound,
		MaxDepth:      render.DefaultMaxDepth,
		HeadingBase:   render.DefaultHeadingBase,
		LatestOnly:    true,
		CategoryOrder: OrderFirstSeen,
		Retry:         client.DefaultRetryConfig(),
	}
}

// Result is the outcome of one run.
type Result struct {
	Kind   client.TargetKind
	Pages  []Page
	Groups []category.Group[Page]
}

// Session is one export run. Target kinds and the schema category order
// are resolved once and reused for the session's lifetime.
type Session struct {
	client      client.RemoteClient
	resolver    *client.Resolver
	coordinator *Coordinator
	cfg         Config
	ordering    category.Ordering
	logger      zerolog.Logger

	// schemaOrder caches category option orders per database.
	schemaOrder map[string][]string
}

// NewSession creates a session over rc, adding retries per cfg.Retry.
func NewSession(rc client.RemoteClient, cfg Config) (*Session, error) {
	lim, err := limiter.New(cfg.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("concurrency: %w", err)
	}

	ordering, err := orderingFor(cfg)
	if err != nil {
		return nil, err
	}

	retrying := client.WithRetry(rc, cfg.Retry)
	coord := NewCoordinator(retrying, lim)
	if cfg.HeadingBase > 0 {
		coord.HeadingBase = cfg.HeadingBase
	}
	if cfg.MaxDepth > 0 {
		coord.Renderer().MaxDepth = cfg.MaxDepth
	}

	return &Session{
		client:      retrying,
		resolver:    client.NewResolver(retrying),
		coordinator: coord,
		cfg:         cfg,
		ordering:    ordering,
		logger:      log.With().Str("component", "session").Logger(),
		schemaOrder: make(map[string][]string),
	}, nil
}

func orderingFor(cfg Config) (category.Ordering, error) {
	var ord category.Ordering
	switch strings.ToLower(strings.TrimSpace(cfg.CategoryOrder)) {
	case "", OrderFirstSeen, OrderSchema:
		// schema becomes Explicit once the database is known
	case OrderAlphabetical:
		ord.Mode = category.Alphabetical
		if cfg.CollationLanguage != "" {
			tag, err := language.Parse(cfg.CollationLanguage)
			if err != nil {
				return ord, fmt.Errorf("collation language %q: %w", cfg.CollationLanguage, err)
			}
			ord.Language = tag
		}
	case OrderExplicit:
		ord.Mode = category.Explicit
		ord.Explicit = cfg.CategoryExplicit
	default:
		return ord, fmt.Errorf("unknown category order %q", cfg.CategoryOrder)
	}
	return ord, nil
}

// Run exports targetID, which may name a database or a page.
func (s *Session) Run(ctx context.Context, targetID string) (*Result, error) {
	start := time.Now()
	res, err := s.run(ctx, targetID)

	kind, outcome := "unknown", "success"
	if res != nil {
		kind = res.Kind.String()
	}
	if err != nil {
		outcome = "error"
	}
	runDuration.WithLabelValues(kind, outcome).Observe(time.Since(start).Seconds())
	return res, err
}

func (s *Session) run(ctx context.Context, targetID string) (*Result, error) {
	kind, err := s.resolver.Resolve(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("resolve target: %w", err)
	}

	res := &Result{Kind: kind}
	ordering := s.ordering

	switch kind {
	case client.KindDatabase:
		pages, err := s.coordinator.FetchAll(ctx, targetID, Options{
			ExportProperty: s.cfg.ExportProperty,
			SortProperty:   s.cfg.SortProperty,
			SortDirection:  s.cfg.SortDirection,
			OnProgress:     s.cfg.OnProgress,
		})
		if err != nil {
			return res, err
		}
		res.Pages = pages
		if strings.EqualFold(s.cfg.CategoryOrder, OrderSchema) {
			ordering = category.Ordering{Mode: category.Explicit, Explicit: s.categoryOrder(ctx, targetID)}
		}

	case client.KindPage:
		page, err := s.coordinator.FetchPage(ctx, targetID)
		if err != nil {
			return res, err
		}
		res.Pages = []Page{page}

	default:
		return res, fmt.Errorf("%w: %s", ErrNotFound, targetID)
	}

	before := len(res.Pages)
	if s.cfg.LatestOnly {
		res.Pages = version.ResolveLatest(res.Pages)
	}
	res.Groups = category.GroupBy(res.Pages, func(p Page) string { return p.Category }, ordering)

	s.logger.Info().
		Str("target_id", targetID).
		Str("kind", kind.String()).
		Int("pages", before).
		Int("latest", len(res.Pages)).
		Int("categories", len(res.Groups)).
		Msg("Export run complete")
	return res, nil
}

// categoryOrder returns the declared option order of the database's
// category property, fetched on first use. A failed lookup falls back to
// first-seen order and is not cached.
func (s *Session) categoryOrder(ctx context.Context, databaseID string) []string {
	if order, ok := s.schemaOrder[databaseID]; ok {
		return order
	}

	db, err := s.client.RetrieveDatabase(ctx, databaseID)
	if err != nil {
		s.logger.Warn().Err(err).Str("database_id", databaseID).
			Msg("Failed to read category options, using first-seen order")
		return nil
	}

	order := db.OptionOrder(s.coordinator.CategoryProperties)
	s.schemaOrder[databaseID] = order
	s.logger.Debug().Strs("order", order).Msg("Category order loaded from schema")
	return order
}

// SubpageSections splits a page's content into its main text and child
// page sections. With LatestOnly, only the latest version of same-titled
// sections is kept; sections share the page's edit time.
func (s *Session) SubpageSections(p Page) (string, []render.SplitSection) {
	main, sections := render.Split(p.Content)
	if !s.cfg.LatestOnly {
		return main, sections
	}
	return main, version.ResolveLatestFunc(sections,
		func(sec render.SplitSection) string { return sec.Title },
		func(render.SplitSection) time.Time { return p.LastEditedTime },
	)
}
