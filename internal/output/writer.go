// Package output writes an export result to disk as Markdown files, one
// directory per category.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sternrassler/notion-export/pkg/export"
	"github.com/Sternrassler/notion-export/pkg/render"
	"github.com/goliatone/go-slug"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// IndexFile is the name of the top-level table of contents.
const IndexFile = "index.md"

var filesWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "export_files_written_total",
	Help: "Markdown files written by kind (page, section, index)",
}, []string{"kind"})

// Sectioner splits a page into its main text and child page sections.
// *export.Session implements it.
type Sectioner interface {
	SubpageSections(p export.Page) (string, []render.SplitSection)
}

// Writer lays out an export result below Dir:
//
//	index.md
//	<category>/<page>.md
//	<category>/<page>/<section>.md
type Writer struct {
	Dir      string
	sections Sectioner
	logger   zerolog.Logger
}

// Summary counts what a Write produced.
type Summary struct {
	Categories int
	Pages      int
	Sections   int
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string, sections Sectioner) *Writer {
	return &Writer{
		Dir:      dir,
		sections: sections,
		logger:   log.With().Str("component", "output").Logger(),
	}
}

// Write writes every group of res. Groups are written in their order;
// slugs that collide within one directory get a numeric suffix.
func (w *Writer) Write(res *export.Result) (Summary, error) {
	var sum Summary
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return sum, fmt.Errorf("create output dir: %w", err)
	}

	var index strings.Builder
	categories := newNamer()

	for _, group := range res.Groups {
		catDir := categories.name(group.Category)
		if err := os.MkdirAll(filepath.Join(w.Dir, catDir), 0o755); err != nil {
			return sum, fmt.Errorf("create category dir: %w", err)
		}
		sum.Categories++
		fmt.Fprintf(&index, "## %s\n\n", group.Category)

		pages := newNamer()
		for _, p := range group.Items {
			name := pages.name(p.Title)
			n, err := w.writePage(filepath.Join(w.Dir, catDir), name, p)
			if err != nil {
				return sum, err
			}
			sum.Pages++
			sum.Sections += n
			fmt.Fprintf(&index, "- [%s](%s/%s.md)\n", p.Title, catDir, name)
		}
		index.WriteString("\n")
	}

	if err := writeFile(filepath.Join(w.Dir, IndexFile), "# Index\n\n"+index.String()); err != nil {
		return sum, err
	}
	filesWrittenTotal.WithLabelValues("index").Inc()

	w.logger.Info().
		Str("dir", w.Dir).
		Int("categories", sum.Categories).
		Int("pages", sum.Pages).
		Int("sections", sum.Sections).
		Msg("Export written")
	return sum, nil
}

// writePage writes the page's main text and one file per subpage section,
// returning the number of sections. Section content starts with its own
// heading line.
func (w *Writer) writePage(dir, name string, p export.Page) (int, error) {
	main, sections := w.sections.SubpageSections(p)

	if err := writeFile(filepath.Join(dir, name+".md"), pageDocument(p, main)); err != nil {
		return 0, err
	}
	filesWrittenTotal.WithLabelValues("page").Inc()

	if len(sections) == 0 {
		return 0, nil
	}

	sectionDir := filepath.Join(dir, name)
	if err := os.MkdirAll(sectionDir, 0o755); err != nil {
		return 0, fmt.Errorf("create section dir: %w", err)
	}
	names := newNamer()
	for _, sec := range sections {
		path := filepath.Join(sectionDir, names.name(sec.Title)+".md")
		if err := writeFile(path, sec.Content+"\n"); err != nil {
			return 0, err
		}
		filesWrittenTotal.WithLabelValues("section").Inc()
	}

	w.logger.Debug().Str("page_id", p.ID).Int("sections", len(sections)).Msg("Page sections written")
	return len(sections), nil
}

func pageDocument(p export.Page, main string) string {
	var b strings.Builder
	b.WriteString("# " + p.Title + "\n\n")
	if len(p.Tags) > 0 {
		b.WriteString("Tags: " + strings.Join(p.Tags, ", ") + "\n\n")
	}
	if main != "" {
		b.WriteString(main + "\n")
	}
	return b.String()
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// namer hands out unique file names within one directory.
type namer struct {
	used map[string]bool
}

func newNamer() *namer {
	return &namer{used: make(map[string]bool)}
}

func (n *namer) name(title string) string {
	base := Slug(title)
	name := base
	for i := 2; n.used[name]; i++ {
		name = fmt.Sprintf("%s-%d", base, i)
	}
	n.used[name] = true
	return name
}

// Slug converts a title into a file name. Titles that normalize to
// nothing become "untitled".
func Slug(title string) string {
	normalized, err := slug.Normalize(strings.TrimSpace(title))
	if err != nil || normalized == "" {
		return "untitled"
	}
	return normalized
}
