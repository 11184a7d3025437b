package render

import (
	"regexp"
	"strings"
)

var headingLine = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)

// Split parses flattened text into the text outside child pages and one
// SplitSection per marked top-level child page, in order. Markers inside
// fenced code blocks, and markers not followed by a heading, are ordinary
// text.
//
// A section runs from its heading to the next structural marker or the end
// of the text, so top-level content rendered after the last child page is
// part of that child's section.
func Split(text string) (string, []SplitSection) {
	lines := strings.Split(text, "\n")

	var (
		main     []string
		sections []SplitSection
		current  []string
		title    string
		open     bool
		inFence  bool
	)

	closeSection := func(byMarker bool) {
		if !open {
			return
		}
		// drop the separator Flatten put before the next marker
		if byMarker && len(current) > 0 && current[len(current)-1] == "" {
			current = current[:len(current)-1]
		}
		sections = append(sections, SplitSection{Title: title, Content: strings.Join(current, "\n")})
		current, open = nil, false
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if !inFence && strings.TrimSpace(line) == Marker {
			j := i + 1
			for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
				j++
			}
			if j < len(lines) {
				if m := headingLine.FindStringSubmatch(lines[j]); m != nil {
					closeSection(true)
					title, open = m[2], true
					current = []string{lines[j]}
					i = j
					continue
				}
			}
		}

		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		}
		if open {
			current = append(current, line)
		} else {
			main = append(main, line)
		}
	}
	closeSection(false)

	return strings.Join(trimBlankLines(main), "\n"), sections
}

func trimBlankLines(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}
