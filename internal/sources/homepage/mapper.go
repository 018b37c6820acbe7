package homepage

import (
	"errors"
	"sort"
	"strings"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
)

// ErrNoEntries is returned when a file holds nothing importable.
var ErrNoEntries = errors.New("no valid entries found in homepage config")

// Mapper converts Homepage config to link drafts. The group or category
// name becomes the tag of every entry under it.
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapBookmarks converts BookmarksConfig to drafts titled after the bookmark
// name. Entries without a usable href are skipped, and a URL seen twice is
// imported once.
func (m *Mapper) MapBookmarks(config BookmarksConfig) ([]domain.Draft, error) {
	var drafts []domain.Draft
	seen := make(map[string]bool)

	for _, category := range config {
		for _, categoryName := range sortedKeys(category) {
			for _, bookmarkMap := range category[categoryName] {
				for _, bookmarkName := range sortedKeys(bookmarkMap) {
					entryList := bookmarkMap[bookmarkName]
					// Each bookmark has a list with a single entry
					if len(entryList) == 0 {
						continue
					}
					entry := entryList[0]

					title := strings.TrimSpace(bookmarkName)
					if title == "" {
						title = entry.Abbr
					}

					if d, ok := draft(title, entry.Href, "", categoryName, seen); ok {
						drafts = append(drafts, d)
					}
				}
			}
		}
	}

	if len(drafts) == 0 {
		return nil, ErrNoEntries
	}
	return drafts, nil
}

// MapServices converts ServicesConfig to drafts titled after the service
// name, carrying the service description.
func (m *Mapper) MapServices(config ServicesConfig) ([]domain.Draft, error) {
	var drafts []domain.Draft
	seen := make(map[string]bool)

	for _, groupMap := range config {
		for _, groupName := range sortedKeys(groupMap) {
			for _, serviceMap := range groupMap[groupName] {
				for _, serviceName := range sortedKeys(serviceMap) {
					props := serviceMap[serviceName]
					if d, ok := draft(serviceName, props.Href, props.Description, groupName, seen); ok {
						drafts = append(drafts, d)
					}
				}
			}
		}
	}

	if len(drafts) == 0 {
		return nil, ErrNoEntries
	}
	return drafts, nil
}

func draft(title, href, description, group string, seen map[string]bool) (domain.Draft, bool) {
	href = strings.TrimSpace(href)
	if href == "" || seen[href] || domain.ValidateURL(href) != nil {
		return domain.Draft{}, false
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = href
	}

	d := domain.Draft{URL: href, Title: title, Tags: []string{}}
	if tag := strings.ToLower(strings.TrimSpace(group)); tag != "" && len([]rune(tag)) <= domain.MaxTagLength {
		d.Tags = []string{tag}
	}
	if desc := strings.TrimSpace(description); desc != "" {
		d.Description = &desc
	}

	seen[href] = true
	return d, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
