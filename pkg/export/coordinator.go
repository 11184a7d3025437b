package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/notion-export/pkg/client"
	"github.com/Sternrassler/notion-export/pkg/limiter"
	"github.com/Sternrassler/notion-export/pkg/pagination"
	"github.com/Sternrassler/notion-export/pkg/render"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls one FetchAll call.
type Options struct {
	// ExportProperty names a checkbox or boolean formula property; when
	// set, only pages where it is true are exported.
	ExportProperty string

	// SortProperty and SortDirection are forwarded to the database query.
	SortProperty  string
	SortDirection string

	// OnProgress is called after each batch of query results.
	OnProgress func(Progress)
}

// Progress reports cumulative counts during FetchAll.
type Progress struct {
	// Fetched is the number of query results received so far.
	Fetched int

	// Kept is the number of pages that passed the gate and rendered.
	Kept int
}

// Coordinator fetches pages and renders them concurrently.
type Coordinator struct {
	client   client.RemoteClient
	renderer *render.Renderer
	limiter  *limiter.Limiter
	logger   zerolog.Logger

	// HeadingBase is the heading level of a page's direct child pages.
	HeadingBase int

	// Property name candidates for field extraction.
	TitleProperties    []string
	CategoryProperties []string
	TagProperties      []string
}

// NewCoordinator creates a coordinator. rc should already retry transient
// failures (see client.WithRetry).
func NewCoordinator(rc client.RemoteClient, lim *limiter.Limiter) *Coordinator {
	return &Coordinator{
		client:             rc,
		renderer:           render.NewRenderer(rc),
		limiter:            lim,
		logger:             log.With().Str("component", "coordinator").Logger(),
		HeadingBase:        render.DefaultHeadingBase,
		TitleProperties:    DefaultTitleProperties,
		CategoryProperties: DefaultCategoryProperties,
		TagProperties:      DefaultTagProperties,
	}
}

// Renderer returns the renderer used for page content.
func (c *Coordinator) Renderer() *render.Renderer {
	return c.renderer
}

// FetchAll exports every page of a database, in query order. Pages that
// fail to render are logged and dropped; a failed query aborts the call.
func (c *Coordinator) FetchAll(ctx context.Context, databaseID string, opts Options) ([]Page, error) {
	start := time.Now()
	req := client.QueryRequest{PageSize: client.MaxPageSize}
	if opts.SortProperty != "" {
		req.Sorts = []client.Sort{{Property: opts.SortProperty, Direction: sortDirection(opts.SortDirection)}}
	}

	var pages []Page
	fetched := 0

	fetch := func(ctx context.Context, cursor string) (pagination.Batch[client.Page], error) {
		q := req
		q.StartCursor = cursor
		resp, err := c.client.QueryDatabase(ctx, databaseID, q)
		if err != nil {
			return pagination.Batch[client.Page]{}, err
		}
		return pagination.Batch[client.Page]{
			Items:      resp.Results,
			NextCursor: resp.NextCursor,
			HasMore:    resp.HasMore,
		}, nil
	}

	err := pagination.Collect(ctx, fetch, func(batch pagination.Batch[client.Page]) error {
		fetched += len(batch.Items)

		gated := make([]client.Page, 0, len(batch.Items))
		for _, p := range batch.Items {
			if passesGate(p.Properties, opts.ExportProperty) {
				gated = append(gated, p)
			} else {
				itemsFilteredTotal.Inc()
			}
		}

		results := pagination.ProcessBatch(ctx, c.limiter, gated, c.process)
		for i, r := range results {
			if r.Err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				itemsDroppedTotal.Inc()
				c.logger.Warn().
					Err(r.Err).
					Str("page_id", gated[i].ID).
					Msg("Dropping page that failed to render")
				continue
			}
			pages = append(pages, r.Value)
		}

		if opts.OnProgress != nil {
			opts.OnProgress(Progress{Fetched: fetched, Kept: len(pages)})
		}
		c.logger.Debug().
			Str("database_id", databaseID).
			Int("fetched", fetched).
			Int("kept", len(pages)).
			Msg("Batch complete")
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query database %s: %w", databaseID, err)
	}

	c.logger.Info().
		Str("database_id", databaseID).
		Int("fetched", fetched).
		Int("exported", len(pages)).
		Dur("duration", time.Since(start)).
		Msg("Database fetched")
	return pages, nil
}

// FetchPage exports a single page.
func (c *Coordinator) FetchPage(ctx context.Context, pageID string) (Page, error) {
	p, err := c.client.RetrievePage(ctx, pageID)
	if err != nil {
		return Page{}, fmt.Errorf("retrieve page %s: %w", pageID, err)
	}

	var out Page
	err = c.limiter.Run(ctx, func(ctx context.Context) error {
		var err error
		out, err = c.process(ctx, *p)
		return err
	})
	if err != nil {
		return Page{}, fmt.Errorf("render page %s: %w", pageID, err)
	}
	return out, nil
}

// process extracts fields and renders one page.
func (c *Coordinator) process(ctx context.Context, p client.Page) (Page, error) {
	doc, err := c.renderer.Render(ctx, p.ID, c.HeadingBase)
	if err != nil {
		return Page{}, err
	}
	itemsProcessedTotal.Inc()

	return Page{
		ID:             p.ID,
		Title:          ExtractTitle(p.Properties, c.TitleProperties),
		Category:       ExtractCategory(p.Properties, c.CategoryProperties),
		Tags:           ExtractTags(p.Properties, c.TagProperties),
		Content:        render.Flatten(doc),
		Document:       doc,
		CreatedTime:    p.CreatedTime,
		LastEditedTime: p.LastEditedTime,
		URL:            p.URL,
	}, nil
}

func sortDirection(dir string) string {
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "desc", "descending":
		return "descending"
	default:
		return "ascending"
	}
}
