package view

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
	"github.com/MrSnakeDoc/linkshelf/internal/domain"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func mk(id int64, ageHours int, tags ...string) domain.Link {
	return domain.Link{
		ID:        id,
		URL:       "https://example.com",
		Title:     "t",
		Tags:      tags,
		CreatedAt: base.Add(-time.Duration(ageHours) * time.Hour),
	}
}

func pageIDs(p Page) []int64 {
	out := make([]int64, len(p.Links))
	for i, l := range p.Links {
		out[i] = l.ID
	}
	return out
}

func TestVisibleSliceFilterIsAND(t *testing.T) {
	links := []domain.Link{mk(1, 0, "a", "b"), mk(2, 1, "a")}

	p := VisibleSlice(links, Query{ActiveFilters: []string{"a", "b"}})
	assert.Equal(t, []int64{1}, pageIDs(p))
	assert.Equal(t, 1, p.Total)

	p = VisibleSlice(links, Query{ActiveFilters: []string{"A"}})
	assert.Equal(t, []int64{1, 2}, pageIDs(p), "filters match case-insensitively")
}

func TestVisibleSliceSort(t *testing.T) {
	links := []domain.Link{mk(1, 5), mk(2, 1), mk(3, 3), mk(4, 3)}

	tests := []struct {
		sort SortOrder
		want []int64
	}{
		{Newest, []int64{2, 4, 3, 1}},
		{Oldest, []int64{1, 3, 4, 2}},
		{"", []int64{2, 4, 3, 1}},
	}
	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			p := VisibleSlice(links, Query{Sort: tt.sort, PageSize: 10})
			assert.Equal(t, tt.want, pageIDs(p))
		})
	}
	assert.Equal(t, int64(1), links[0].ID, "input left untouched")
}

func TestVisibleSlicePagination(t *testing.T) {
	var links []domain.Link
	for i := int64(1); i <= 12; i++ {
		links = append(links, mk(i, int(i)))
	}

	tests := []struct {
		name     string
		page     int
		wantPage int
		wantIDs  []int64
	}{
		{"first page", 1, 1, []int64{1, 2, 3, 4, 5}},
		{"last partial page", 3, 3, []int64{11, 12}},
		{"clamped high", 9, 3, []int64{11, 12}},
		{"clamped low", 0, 1, []int64{1, 2, 3, 4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := VisibleSlice(links, Query{Page: tt.page})
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, DefaultPageSize, p.PageSize)
			assert.Equal(t, 3, p.TotalPages)
			assert.Equal(t, 12, p.Total)
			assert.Equal(t, tt.wantIDs, pageIDs(p))
		})
	}
}

func TestVisibleSliceEmpty(t *testing.T) {
	p := VisibleSlice(nil, Query{Page: 4})
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.TotalPages)
	assert.Equal(t, 0, p.Total)
	assert.NotNil(t, p.Links)
	assert.Empty(t, p.Links)
}

func TestParseSort(t *testing.T) {
	got, err := ParseSort(" Oldest ")
	require.NoError(t, err)
	assert.Equal(t, Oldest, got)

	got, err = ParseSort("")
	require.NoError(t, err)
	assert.Equal(t, Newest, got)

	_, err = ParseSort("alphabetical")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

type saverFunc func(ctx context.Context, id int64, patch domain.Patch) (domain.Link, error)

func (f saverFunc) UpdateLink(ctx context.Context, id int64, patch domain.Patch) (domain.Link, error) {
	return f(ctx, id, patch)
}

func TestEditorCancelRestoresSnapshot(t *testing.T) {
	ed := NewEditor()
	orig := mk(1, 0, "go")
	orig.Title = "X"

	_, err := ed.Begin(orig)
	require.NoError(t, err)
	assert.Equal(t, Editing, ed.State(1))

	_, err = ed.SetDraft(1, domain.Draft{URL: "https://changed.example", Title: "Y"})
	require.NoError(t, err)

	got, err := ed.Cancel(1)
	require.NoError(t, err)
	assert.Equal(t, orig, got)
	assert.Equal(t, Viewing, ed.State(1))
}

func TestEditorBeginTwiceKeepsDraft(t *testing.T) {
	ed := NewEditor()
	orig := mk(1, 0)
	_, err := ed.Begin(orig)
	require.NoError(t, err)
	_, err = ed.SetDraft(1, domain.Draft{URL: orig.URL, Title: "draft"})
	require.NoError(t, err)

	s, err := ed.Begin(orig)
	require.NoError(t, err)
	assert.Equal(t, "draft", s.Draft.Title)
}

func TestEditorSaveSuccessClosesSession(t *testing.T) {
	ed := NewEditor()
	orig := mk(1, 0)
	orig.Title = "X"
	_, err := ed.Begin(orig)
	require.NoError(t, err)
	_, err = ed.SetDraft(1, domain.Draft{URL: orig.URL, Title: " Y "})
	require.NoError(t, err)

	var sent domain.Patch
	got, err := ed.Save(context.Background(), 1, saverFunc(func(_ context.Context, id int64, p domain.Patch) (domain.Link, error) {
		sent = p
		out := orig
		out.Title = *p.Title
		return out, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, "Y", got.Title)
	require.NotNil(t, sent.Title)
	assert.Nil(t, sent.URL, "unchanged url is not sent")

	_, open := ed.Session(1)
	assert.False(t, open)
}

func TestEditorSaveFailureKeepsDraft(t *testing.T) {
	ed := NewEditor()
	orig := mk(1, 0)
	orig.Title = "X"
	_, err := ed.Begin(orig)
	require.NoError(t, err)
	_, err = ed.SetDraft(1, domain.Draft{URL: orig.URL, Title: "Y"})
	require.NoError(t, err)

	_, err = ed.Save(context.Background(), 1, saverFunc(func(context.Context, int64, domain.Patch) (domain.Link, error) {
		return domain.Link{}, apperror.Request(500, "", "server exploded")
	}))
	require.Error(t, err)

	s, ok := ed.Session(1)
	require.True(t, ok)
	assert.Equal(t, Editing, s.State)
	assert.Equal(t, "Y", s.Draft.Title)
	assert.Equal(t, "X", s.Original.Title)
	assert.Equal(t, "server exploded", s.Err)
}

func TestEditorSaveValidatesDraft(t *testing.T) {
	ed := NewEditor()
	_, err := ed.Begin(mk(1, 0))
	require.NoError(t, err)
	_, err = ed.SetDraft(1, domain.Draft{URL: "https://example.com", Title: "   "})
	require.NoError(t, err)

	called := false
	_, err = ed.Save(context.Background(), 1, saverFunc(func(context.Context, int64, domain.Patch) (domain.Link, error) {
		called = true
		return domain.Link{}, nil
	}))
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.False(t, called)
	assert.Equal(t, Editing, ed.State(1))
}

func TestEditorRejectsConcurrentSave(t *testing.T) {
	ed := NewEditor()
	orig := mk(1, 0)
	_, err := ed.Begin(orig)
	require.NoError(t, err)
	_, err = ed.SetDraft(1, domain.Draft{URL: orig.URL, Title: "Y"})
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := ed.Save(context.Background(), 1, saverFunc(func(context.Context, int64, domain.Patch) (domain.Link, error) {
			close(entered)
			<-release
			return orig, nil
		}))
		done <- err
	}()
	<-entered

	assert.Equal(t, Saving, ed.State(1))
	_, err = ed.Save(context.Background(), 1, saverFunc(func(context.Context, int64, domain.Patch) (domain.Link, error) {
		return domain.Link{}, errors.New("must not be called")
	}))
	assert.ErrorIs(t, err, apperror.ErrConflict)
	_, err = ed.Cancel(1)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	close(release)
	assert.NoError(t, <-done)
}

func TestEditorWithoutSession(t *testing.T) {
	ed := NewEditor()
	_, err := ed.SetDraft(7, domain.Draft{})
	assert.ErrorIs(t, err, apperror.ErrConflict)
	_, err = ed.Cancel(7)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestEditorPrune(t *testing.T) {
	ed := NewEditor()
	_, _ = ed.Begin(mk(1, 0))
	_, _ = ed.Begin(mk(2, 0))

	ed.Prune(func(id int64) bool { return id == 2 })

	sessions := ed.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, int64(2), sessions[0].LinkID)
}
