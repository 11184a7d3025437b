package render

import (
	"context"
	"strings"

	"github.com/Sternrassler/notion-export/pkg/client"
	"github.com/Sternrassler/notion-export/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultMaxDepth caps how many levels of nested children are fetched.
	DefaultMaxDepth = 10

	// DefaultHeadingBase is the heading level of a page's direct child pages.
	DefaultHeadingBase = 2

	untitled = "Untitled"
)

// Renderer fetches block trees and renders them to Documents.
type Renderer struct {
	client client.RemoteClient
	logger zerolog.Logger

	// MaxDepth is the deepest child depth whose children are still fetched.
	// Deeper content is dropped without error.
	MaxDepth int
}

// NewRenderer creates a renderer reading through rc. Wrap rc with
// client.WithRetry for transient failure handling.
func NewRenderer(rc client.RemoteClient) *Renderer {
	return &Renderer{
		client:   rc,
		logger:   log.With().Str("component", "renderer").Logger(),
		MaxDepth: DefaultMaxDepth,
	}
}

// arenaNode is one fetched block. heading and depth are the heading depth
// and child depth its own children render at.
type arenaNode struct {
	id       string
	block    client.Block
	heading  int
	depth    int
	children []int
}

// Render fetches the children of blockID and renders them with child pages
// headed at headingDepth. Failing to list blockID's own children is
// returned; failures further down are logged and leave that subtree empty.
func (r *Renderer) Render(ctx context.Context, blockID string, headingDepth int) (Document, error) {
	arena, err := r.fetch(ctx, blockID, headingDepth)
	if err != nil {
		return Document{}, err
	}
	return Document{Nodes: build(arena, 0)}, nil
}

// RenderText renders blockID and flattens the result.
func (r *Renderer) RenderText(ctx context.Context, blockID string, headingDepth int) (string, error) {
	doc, err := r.Render(ctx, blockID, headingDepth)
	if err != nil {
		return "", err
	}
	return Flatten(doc), nil
}

// fetch loads the block tree below rootID into an arena, walking it with an
// explicit stack. Index 0 is the root.
func (r *Renderer) fetch(ctx context.Context, rootID string, headingDepth int) ([]arenaNode, error) {
	arena := []arenaNode{{id: rootID, heading: headingDepth}}
	stack := []int{0}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if arena[i].depth > r.MaxDepth {
			r.logger.Debug().
				Str("block_id", arena[i].id).
				Int("depth", arena[i].depth).
				Msg("Max depth reached, not descending")
			continue
		}

		blocks, err := r.children(ctx, arena[i].id)
		if err != nil {
			if i == 0 || ctx.Err() != nil {
				return nil, err
			}
			r.logger.Warn().
				Err(err).
				Str("block_id", arena[i].id).
				Str("block_type", arena[i].block.Type).
				Msg("Failed to fetch nested blocks, omitting them")
			continue
		}

		parent := arena[i]
		for _, b := range blocks {
			child := arenaNode{id: b.ID, block: b, heading: parent.heading, depth: parent.depth + 1}
			if b.Kind() == client.KindChildPage {
				child.heading++
			}
			arena = append(arena, child)
			idx := len(arena) - 1
			arena[i].children = append(arena[i].children, idx)
			if b.HasChildren {
				stack = append(stack, idx)
			}
		}
	}
	return arena, nil
}

func (r *Renderer) children(ctx context.Context, blockID string) ([]client.Block, error) {
	return pagination.All(ctx, func(ctx context.Context, cursor string) (pagination.Batch[client.Block], error) {
		list, err := r.client.ListBlockChildren(ctx, blockID, cursor)
		if err != nil {
			return pagination.Batch[client.Block]{}, err
		}
		return pagination.Batch[client.Block]{
			Items:      list.Results,
			NextCursor: list.NextCursor,
			HasMore:    list.HasMore,
		}, nil
	})
}

// build turns the children of arena[i] into nodes. Recursion is bounded by
// the fetch depth cap.
func build(arena []arenaNode, i int) []Node {
	parent := arena[i]
	var out []Node
	for _, ci := range parent.children {
		c := arena[ci]

		if c.block.Kind() == client.KindChildPage {
			out = append(out, Section{
				Title: childTitle(c.block),
				Level: clampLevel(parent.heading),
				Body:  build(arena, ci),
			})
			continue
		}

		text := blockText(c.block)
		if len(c.children) > 0 {
			text = joinNonEmpty(text, joinNodes(build(arena, ci)))
		}
		if c.block.Kind() == client.KindQuote {
			out = append(out, Leaf{Text: quote(text)})
			continue
		}
		if text != "" {
			out = append(out, Leaf{Text: text})
		}
	}
	return out
}

// blockText renders a block's own content as Markdown.
func blockText(b client.Block) string {
	text := b.Text()
	switch b.Kind() {
	case client.KindHeading:
		return strings.Repeat("#", b.HeadingLevel()) + " " + text
	case client.KindBulletedItem:
		return "- " + text
	case client.KindNumberedItem:
		return "1. " + text
	case client.KindToDo:
		if b.Checked() {
			return "- [x] " + text
		}
		return "- [ ] " + text
	case client.KindCode:
		return "```" + b.Language() + "\n" + text + "\n```"
	case client.KindDivider:
		return "---"
	case client.KindParagraph, client.KindQuote, client.KindCallout, client.KindToggle:
		return text
	default:
		return ""
	}
}

// quote prefixes every line with "> ", blank lines with ">".
func quote(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + line
		}
	}
	return strings.Join(lines, "\n")
}

func childTitle(b client.Block) string {
	title := strings.Join(strings.Fields(b.ChildTitle()), " ")
	if title == "" {
		return untitled
	}
	return title
}

func clampLevel(depth int) int {
	return min(6, max(1, depth))
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
