// Package version picks the latest revision among pages or child sections
// whose titles differ only by a trailing version token such as "v2",
// "ver 1.3" or "(Version 4)".
package version

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// trailing matches a version token at the end of a title: separators (or
// the start of the title), a v/ver/version keyword, dotted integers and an
// optional closing bracket.
var trailing = regexp.MustCompile(`(?i)^(.*?)(?:^|[ \-_(\[]+)(?:version|ver|v) ?(\d+(?:\.\d+)*)\s*[)\]]?\s*$`)

// Version is a dotted version number, most significant component first.
type Version []int

// String formats v as dotted integers.
func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// Compare orders versions component-wise, treating missing trailing
// components as 0. It returns -1, 0 or 1.
func Compare(a, b Version) int {
	n := max(len(a), len(b))
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

// NormalizeTitle lower-cases s, collapses whitespace runs to one space and
// trims it.
func NormalizeTitle(s string) string {
	return strings.Join(strings.Fields(cases.Lower(language.Und).String(s)), " ")
}

// Parse splits title into its normalized base title and trailing version.
// ok is false when the title carries no version; base is then the whole
// normalized title.
func Parse(title string) (base string, v Version, ok bool) {
	m := trailing.FindStringSubmatch(title)
	if m == nil {
		return NormalizeTitle(title), nil, false
	}

	fields := strings.Split(m[2], ".")
	v = make(Version, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return NormalizeTitle(title), nil, false
		}
		v = append(v, n)
	}
	return NormalizeTitle(m[1]), v, true
}

// Candidate is anything that can take part in version resolution.
type Candidate interface {
	VersionTitle() string
	EditedAt() time.Time
}

// ResolveLatest keeps one candidate per versioned base title. See
// ResolveLatestFunc.
func ResolveLatest[T Candidate](items []T) []T {
	return ResolveLatestFunc(items,
		func(c T) string { return c.VersionTitle() },
		func(c T) time.Time { return c.EditedAt() },
	)
}

// ResolveLatestFunc groups items by normalized base title. Groups without
// any versioned member are kept whole. Otherwise only the member with the
// greatest version survives; equal versions fall back to the later edit
// time, then to the first encountered. Survivors keep their input order.
func ResolveLatestFunc[T any](items []T, title func(T) string, edited func(T) time.Time) []T {
	type entry struct {
		base      string
		version   Version
		versioned bool
	}
	entries := make([]entry, len(items))
	winner := make(map[string]int)

	for i, item := range items {
		base, v, ok := Parse(title(item))
		entries[i] = entry{base: base, version: v, versioned: ok}
		if !ok {
			continue
		}

		best, seen := winner[base]
		if !seen {
			winner[base] = i
			continue
		}
		switch c := Compare(v, entries[best].version); {
		case c > 0:
			winner[base] = i
		case c == 0 && edited(item).After(edited(items[best])):
			winner[base] = i
		}
	}

	kept := make([]T, 0, len(items))
	for i, item := range items {
		best, versionedGroup := winner[entries[i].base]
		if !versionedGroup || best == i {
			kept = append(kept, item)
		}
	}
	return kept
}
