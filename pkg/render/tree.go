// Package render turns a Notion block hierarchy into Markdown.
//
// Rendering produces a Document: a tree of Leaf text and Section nodes, one
// Section per child page. Flatten serializes a Document into a single text
// in which every top-level child page is introduced by a Marker line, and
// Split parses such a text back into its main part and child sections.
package render

import "strings"

// Marker introduces a top-level child page in flattened text. It is always
// followed, after optional blank lines, by the child page's heading.
const Marker = "<!--subpage-->"

// Node is a Leaf or a Section.
type Node interface {
	isNode()
}

// Leaf is rendered Markdown that is not a child page.
type Leaf struct {
	Text string
}

// Section is a child page: a heading at Level followed by its body.
type Section struct {
	Title string
	Level int
	Body  []Node
}

func (Leaf) isNode()    {}
func (Section) isNode() {}

// Document is the rendering of one page's children, in remote order.
type Document struct {
	Nodes []Node
}

// SplitSection is one child page recovered from flattened text.
type SplitSection struct {
	Title   string
	Content string
}

// Heading returns the Markdown heading line of s.
func (s Section) Heading() string {
	return strings.Repeat("#", s.Level) + " " + s.Title
}

// Text renders s on its own, exactly as it appears after its marker in
// flattened output.
func (s Section) Text() string {
	body := joinNodes(s.Body)
	if body == "" {
		return s.Heading()
	}
	return s.Heading() + "\n\n" + body
}

// Flatten serializes doc into marker text. Parts are separated by a blank
// line; only top-level sections carry a marker.
func Flatten(doc Document) string {
	parts := make([]string, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		switch n := n.(type) {
		case Leaf:
			parts = append(parts, n.Text)
		case Section:
			parts = append(parts, Marker+"\n"+n.Text())
		}
	}
	return strings.Join(parts, "\n\n")
}

// Sections returns the top-level child pages of doc with the exact text
// each renders to.
func (d Document) Sections() []SplitSection {
	var out []SplitSection
	for _, n := range d.Nodes {
		if s, ok := n.(Section); ok {
			out = append(out, SplitSection{Title: s.Title, Content: s.Text()})
		}
	}
	return out
}

// Main returns the top-level text that does not belong to a child page.
func (d Document) Main() string {
	var parts []string
	for _, n := range d.Nodes {
		if l, ok := n.(Leaf); ok {
			parts = append(parts, l.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// joinNodes renders nested nodes. Sections below the top level carry no
// marker.
func joinNodes(nodes []Node) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		switch n := n.(type) {
		case Leaf:
			parts = append(parts, n.Text)
		case Section:
			parts = append(parts, n.Text())
		}
	}
	return strings.Join(parts, "\n\n")
}
