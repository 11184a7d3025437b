// Package category partitions exported pages into ordered category groups.
package category

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Uncategorized is the group name for pages without a category.
const Uncategorized = "Uncategorized"

// Mode selects how groups are ordered.
type Mode int

const (
	// FirstSeen orders groups by the first page of each category.
	FirstSeen Mode = iota

	// Alphabetical orders groups by locale-aware collation of their names.
	Alphabetical

	// Explicit orders the listed categories first, then the rest first-seen.
	Explicit
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case Alphabetical:
		return "alphabetical"
	case Explicit:
		return "explicit"
	default:
		return "first_seen"
	}
}

// ParseMode parses a configured mode name. The empty string is FirstSeen.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first_seen":
		return FirstSeen, nil
	case "alphabetical":
		return Alphabetical, nil
	case "explicit":
		return Explicit, nil
	default:
		return FirstSeen, fmt.Errorf("unknown category order %q", s)
	}
}

// Ordering configures group order. The zero value is FirstSeen.
type Ordering struct {
	Mode Mode

	// Explicit lists category names for the Explicit mode.
	Explicit []string

	// Language is the collation language for Alphabetical; zero means und.
	Language language.Tag
}

// Group is one category and its pages, in the order they were received.
type Group[T any] struct {
	Category string
	Items    []T
}

// GroupBy partitions items by category(item), keeping item order within
// each group, and orders the groups per ord. Empty categories become
// Uncategorized.
func GroupBy[T any](items []T, category func(T) string, ord Ordering) []Group[T] {
	var groups []Group[T]
	index := make(map[string]int)

	for _, item := range items {
		name := strings.TrimSpace(category(item))
		if name == "" {
			name = Uncategorized
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group[T]{Category: name})
		}
		groups[i].Items = append(groups[i].Items, item)
	}

	switch ord.Mode {
	case Alphabetical:
		sortAlphabetical(groups, ord.Language)
	case Explicit:
		groups = sortExplicit(groups, index, ord.Explicit)
	}
	return groups
}

func sortAlphabetical[T any](groups []Group[T], lang language.Tag) {
	col := collate.New(lang)
	sort.SliceStable(groups, func(i, j int) bool {
		return col.CompareString(groups[i].Category, groups[j].Category) < 0
	})
}

func sortExplicit[T any](groups []Group[T], index map[string]int, order []string) []Group[T] {
	out := make([]Group[T], 0, len(groups))
	placed := make(map[string]bool, len(order))
	for _, name := range order {
		i, ok := index[name]
		if !ok || placed[name] {
			continue
		}
		placed[name] = true
		out = append(out, groups[i])
	}
	for _, g := range groups {
		if !placed[g.Category] {
			out = append(out, g)
		}
	}
	return out
}
