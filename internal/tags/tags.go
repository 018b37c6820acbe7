// Package tags derives the tag vocabulary shown in filter controls.
package tags

import (
	"sort"
	"strings"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
)

// Compute returns the union of every link tag and the server vocabulary,
// lowercased, deduplicated and sorted.
func Compute(links []domain.Link, vocabulary []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(vocabulary))

	add := func(tag string) {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	for _, l := range links {
		for _, t := range l.Tags {
			add(t)
		}
	}
	for _, t := range vocabulary {
		add(t)
	}

	sort.Strings(out)
	return out
}

// ParseInput splits comma separated user input ("go, web,,cli") into
// normalized tags.
func ParseInput(input string) ([]string, error) {
	return domain.NormalizeTags(strings.Split(input, ","))
}

// Merge appends the tags parsed from input to existing ones.
func Merge(existing []string, input string) ([]string, error) {
	parsed, err := ParseInput(input)
	if err != nil {
		return nil, err
	}
	return domain.NormalizeTags(append(append([]string(nil), existing...), parsed...))
}
