package domain

import (
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
)

// NormalizeTags lowercases and trims tags, drops empties and duplicates while
// keeping first-seen order, and rejects tags longer than MaxTagLength.
// The result is never nil.
func NormalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, raw := range tags {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" || seen[tag] {
			continue
		}
		if len([]rune(tag)) > MaxTagLength {
			return nil, apperror.ValidationFailed("tags",
				fmt.Sprintf("tag %q exceeds %d characters", tag, MaxTagLength))
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out, nil
}
