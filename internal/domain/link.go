package domain

import (
	"net/url"
	"strings"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
)

// MaxTagLength is the longest tag the remote service accepts.
const MaxTagLength = 50

// Link is a saved web link.
//
// A Link with a non-zero ID is the remote-authoritative representation; the
// canonical collection holds at most one Link per ID.
type Link struct {
	// ─────────────────────────────
	// Identity (server assigned)
	// ─────────────────────────────

	// ID is zero for local-only state that was never persisted.
	ID int64 `json:"id,omitempty"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Notes       *string  `json:"notes"`
	Tags        []string `json:"tags"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	// CreatedAt drives the default sort order.
	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a deep copy so snapshots never alias collection state.
func (l Link) Clone() Link {
	out := l
	out.Description = cloneString(l.Description)
	out.Notes = cloneString(l.Notes)
	if l.Tags != nil {
		out.Tags = append([]string(nil), l.Tags...)
	}
	return out
}

// HasTag reports whether the link carries tag (tags are stored lowercase).
func (l Link) HasTag(tag string) bool {
	tag = strings.ToLower(tag)
	for _, t := range l.Tags {
		if strings.ToLower(t) == tag {
			return true
		}
	}
	return false
}

// Draft is the payload for creating a link.
type Draft struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Notes       *string  `json:"notes"`
	Tags        []string `json:"tags"`
}

// Normalize trims text fields, blanks empty optionals and normalizes tags.
func (d Draft) Normalize() (Draft, error) {
	tags, err := NormalizeTags(d.Tags)
	if err != nil {
		return d, err
	}
	return Draft{
		URL:         strings.TrimSpace(d.URL),
		Title:       strings.TrimSpace(d.Title),
		Description: optional(d.Description),
		Notes:       optional(d.Notes),
		Tags:        tags,
	}, nil
}

// Validate checks the required fields of a normalized draft.
func (d Draft) Validate() error {
	if d.Title == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	return ValidateURL(d.URL)
}

// DraftOf returns the editable fields of l.
func DraftOf(l Link) Draft {
	c := l.Clone()
	return Draft{
		URL:         c.URL,
		Title:       c.Title,
		Description: c.Description,
		Notes:       c.Notes,
		Tags:        c.Tags,
	}
}

// Patch carries only the fields that changed. Nil means untouched.
type Patch struct {
	URL         *string   `json:"url,omitempty"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.URL == nil && p.Title == nil && p.Description == nil && p.Notes == nil && p.Tags == nil
}

// Validate rejects patches that would blank a required field.
func (p Patch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return apperror.ValidationFailed("title", "title cannot be empty")
	}
	if p.URL != nil {
		if err := ValidateURL(strings.TrimSpace(*p.URL)); err != nil {
			return err
		}
	}
	if p.Tags != nil {
		if _, err := NormalizeTags(*p.Tags); err != nil {
			return err
		}
	}
	return nil
}

// Apply returns l with the patch fields set. Used for local previews only;
// the collection is updated from the server response.
func (p Patch) Apply(l Link) Link {
	out := l.Clone()
	if p.URL != nil {
		out.URL = *p.URL
	}
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = optional(p.Description)
	}
	if p.Notes != nil {
		out.Notes = optional(p.Notes)
	}
	if p.Tags != nil {
		out.Tags = append([]string(nil), (*p.Tags)...)
	}
	return out
}

// Diff computes the patch turning original into draft.
func Diff(original Link, draft Draft) (Patch, error) {
	d, err := draft.Normalize()
	if err != nil {
		return Patch{}, err
	}

	var p Patch
	if d.URL != original.URL {
		p.URL = &d.URL
	}
	if d.Title != original.Title {
		p.Title = &d.Title
	}
	if deref(d.Description) != deref(original.Description) {
		p.Description = stringPtr(deref(d.Description))
	}
	if deref(d.Notes) != deref(original.Notes) {
		p.Notes = stringPtr(deref(d.Notes))
	}
	if !equalTags(d.Tags, original.Tags) {
		tags := d.Tags
		if tags == nil {
			tags = []string{}
		}
		p.Tags = &tags
	}
	return p, nil
}

// Merge reconciles the server's answer to an update with the link held
// locally. Server fields win whenever present; required fields are never
// blanked because the server does not always echo them.
func Merge(held, server Link) Link {
	out := held.Clone()
	if server.ID != 0 {
		out.ID = server.ID
	}
	if strings.TrimSpace(server.URL) != "" {
		out.URL = server.URL
	}
	if strings.TrimSpace(server.Title) != "" {
		out.Title = server.Title
	}
	if server.Description != nil {
		out.Description = cloneString(server.Description)
	}
	if server.Notes != nil {
		out.Notes = cloneString(server.Notes)
	}
	if server.Tags != nil {
		out.Tags = append([]string(nil), server.Tags...)
	}
	if !server.CreatedAt.IsZero() {
		out.CreatedAt = server.CreatedAt
	}
	return out
}

// ValidateURL accepts absolute http(s) URLs with a host.
func ValidateURL(raw string) error {
	if raw == "" {
		return apperror.ValidationFailed("url", "URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return apperror.ValidationFailed("url", "invalid URL format")
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return apperror.ValidationFailed("url", "URL must use http:// or https:// scheme")
	}
	if u.Host == "" {
		return apperror.ValidationFailed("url", "URL must have a valid host")
	}
	return nil
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func stringPtr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func equalTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
