// Package view projects the canonical collection into what a client shows:
// the filtered, sorted page of links and the per-row edit sessions.
package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
	"github.com/MrSnakeDoc/linkshelf/internal/domain"
)

// DefaultPageSize is how many links one page shows.
const DefaultPageSize = 5

type SortOrder string

const (
	Newest SortOrder = "newest"
	Oldest SortOrder = "oldest"
)

// ParseSort accepts "newest" and "oldest"; empty means newest.
func ParseSort(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", Newest:
		return Newest, nil
	case Oldest:
		return Oldest, nil
	}
	return "", apperror.ValidationFailed("sort", fmt.Sprintf("unknown sort order %q", s))
}

type Query struct {
	// ActiveFilters are combined with AND: a link must carry every tag.
	ActiveFilters []string
	Sort          SortOrder
	Page          int
	PageSize      int
}

type Page struct {
	Links      []domain.Link `json:"links"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
	// Total counts the links matching the filters, across all pages.
	Total int `json:"total"`
}

// VisibleSlice filters, sorts and paginates links. The page is clamped to
// the available range so the result is never an out-of-range empty page
// while matching links exist. links is not modified.
func VisibleSlice(links []domain.Link, q Query) Page {
	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}

	filtered := make([]domain.Link, 0, len(links))
	for _, l := range links {
		if hasAll(l, q.ActiveFilters) {
			filtered = append(filtered, l)
		}
	}

	sortLinks(filtered, q.Sort)

	total := len(filtered)
	totalPages := (total + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	out := make([]domain.Link, 0, end-start)
	for _, l := range filtered[start:end] {
		out = append(out, l.Clone())
	}

	return Page{
		Links:      out,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
		Total:      total,
	}
}

func hasAll(l domain.Link, tags []string) bool {
	for _, t := range tags {
		if !l.HasTag(t) {
			return false
		}
	}
	return true
}

// sortLinks orders by createdAt; equal timestamps fall back to the id so
// the order does not move between renders.
func sortLinks(links []domain.Link, order SortOrder) {
	oldest := order == Oldest
	sort.SliceStable(links, func(i, j int) bool {
		a, b := links[i], links[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if oldest {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if oldest {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
}
