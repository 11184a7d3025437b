package export

import (
	"sort"
	"strings"

	"github.com/Sternrassler/notion-export/pkg/client"
	"github.com/Sternrassler/notion-export/pkg/category"
)

// Untitled is the title of pages without a usable title property.
const Untitled = "Untitled"

// Default property name candidates, matched case-insensitively in order.
var (
	DefaultTitleProperties    = []string{"Title", "Name"}
	DefaultCategoryProperties = []string{"Category", "Categories", "Type"}
	DefaultTagProperties      = []string{"Tags", "Tag", "Labels"}
)

// lookup finds a property by name, preferring an exact match over a
// case-insensitive one.
func lookup(props map[string]client.PropertyValue, name string) (client.PropertyValue, bool) {
	if p, ok := props[name]; ok {
		return p, true
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.EqualFold(k, name) {
			return props[k], true
		}
	}
	return client.PropertyValue{}, false
}

// ExtractTitle returns the first non-empty title-type candidate, then the
// first non-empty rich_text candidate, then any non-empty title property.
func ExtractTitle(props map[string]client.PropertyValue, candidates []string) string {
	for _, typ := range []string{"title", "rich_text"} {
		for _, name := range candidates {
			p, ok := lookup(props, name)
			if !ok || p.Type != typ {
				continue
			}
			if text := strings.TrimSpace(propertyText(p)); text != "" {
				return text
			}
		}
	}

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if p := props[k]; p.Type == "title" {
			if text := strings.TrimSpace(client.PlainText(p.Title)); text != "" {
				return text
			}
		}
	}
	return Untitled
}

func propertyText(p client.PropertyValue) string {
	if p.Type == "title" {
		return client.PlainText(p.Title)
	}
	return client.PlainText(p.RichText)
}

// ExtractCategory returns the first candidate's select value, then the
// first entry of the first candidate multi-select, else Uncategorized.
func ExtractCategory(props map[string]client.PropertyValue, candidates []string) string {
	for _, name := range candidates {
		p, ok := lookup(props, name)
		if ok && p.Type == "select" && p.Select != nil && strings.TrimSpace(p.Select.Name) != "" {
			return strings.TrimSpace(p.Select.Name)
		}
	}
	for _, name := range candidates {
		p, ok := lookup(props, name)
		if !ok || p.Type != "multi_select" {
			continue
		}
		for _, opt := range p.MultiSelect {
			if n := strings.TrimSpace(opt.Name); n != "" {
				return n
			}
		}
	}
	return category.Uncategorized
}

// ExtractTags returns the names of the first matching multi-select or
// select candidate, or nil.
func ExtractTags(props map[string]client.PropertyValue, candidates []string) []string {
	for _, name := range candidates {
		p, ok := lookup(props, name)
		if !ok {
			continue
		}
		switch p.Type {
		case "multi_select":
			tags := make([]string, 0, len(p.MultiSelect))
			for _, opt := range p.MultiSelect {
				tags = append(tags, opt.Name)
			}
			return tags
		case "select":
			if p.Select != nil && p.Select.Name != "" {
				return []string{p.Select.Name}
			}
			return nil
		}
	}
	return nil
}

// passesGate reports whether the gate property is true. An empty gate
// passes everything; a missing property fails.
func passesGate(props map[string]client.PropertyValue, gate string) bool {
	if gate == "" {
		return true
	}
	p, ok := lookup(props, gate)
	return ok && p.IsTrue()
}
