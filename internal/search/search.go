// Package search derives filtered views of the post collection. All
// functions are pure and cheap enough to recompute on every input change.
package search

import (
	"sort"
	"strings"

	"gblog/internal/post"
)

// Filter keeps posts whose title contains query (case-insensitive) and,
// when tag is non-empty, whose tag matches it exactly. Content and tag
// text never participate in the query match.
func Filter(posts []post.Post, query, tag string) []post.Post {
	query = strings.ToLower(query)
	out := make([]post.Post, 0, len(posts))
	for _, p := range posts {
		if !strings.Contains(strings.ToLower(p.Title), query) {
			continue
		}
		if tag != "" && p.Tag != tag {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Tags returns the distinct tag values of the whole unfiltered collection
// in ascending order.
func Tags(posts []post.Post) []string {
	seen := make(map[string]struct{}, len(posts))
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.Tag]; ok {
			continue
		}
		seen[p.Tag] = struct{}{}
		out = append(out, p.Tag)
	}
	sort.Strings(out)
	return out
}

// Featured is the first post of the filtered view, or nil when the view
// is empty.
func Featured(filtered []post.Post) *post.Post {
	if len(filtered) == 0 {
		return nil
	}
	return &filtered[0]
}

// Toggle implements tag-button semantics: clicking the active tag clears
// the filter, clicking any other tag selects it.
func Toggle(current, clicked string) string {
	if current == clicked {
		return ""
	}
	return clicked
}
