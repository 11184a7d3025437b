// Package export drives an export run: it resolves the target, pages
// through database query results, renders every page's block tree under a
// concurrency bound, keeps the latest version of each page and groups the
// result by category.
package export

import (
	"time"

	"github.com/Sternrassler/notion-export/pkg/render"
)

// Page is one exported page.
type Page struct {
	ID       string
	Title    string
	Category string
	Tags     []string

	// Content is the flattened rendering with subpage markers.
	Content string

	// Document is the tree Content was flattened from.
	Document render.Document

	CreatedTime    time.Time
	LastEditedTime time.Time
	URL            string
}

// VersionTitle implements version.Candidate.
func (p Page) VersionTitle() string { return p.Title }

// EditedAt implements version.Candidate.
func (p Page) EditedAt() time.Time { return p.LastEditedTime }
