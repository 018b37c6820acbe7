package engine

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

// CreateLink persists draft remotely and prepends the server's link. Nothing
// is added locally before the server assigned an id. A plan ceiling comes
// back as apperror.ErrLimitReached and is never retried.
func (e *Engine) CreateLink(ctx context.Context, draft domain.Draft) (domain.Link, error) {
	start := time.Now()

	d, err := draft.Normalize()
	if err != nil {
		return domain.Link{}, e.observe("create", start, err)
	}
	if err := d.Validate(); err != nil {
		return domain.Link{}, e.observe("create", start, err)
	}

	apiKey, err := e.apiKey(ctx)
	if err != nil {
		return domain.Link{}, e.observe("create", start, err)
	}

	link, err := e.gw.Create(ctx, apiKey, d)
	if err != nil {
		return domain.Link{}, e.observe("create", start, err)
	}
	if link.Tags == nil {
		link.Tags = []string{}
	}

	e.mu.Lock()
	next := make([]domain.Link, 0, len(e.links)+1)
	next = append(next, link.Clone())
	for _, l := range e.links {
		if l.ID != link.ID {
			next = append(next, l)
		}
	}
	e.links = next
	e.record(mutation{kind: mutCreate, link: link.Clone()})
	e.mu.Unlock()

	e.persist(ctx)
	e.logger.Info("link created", logger.Int64("id", link.ID))
	return link.Clone(), e.observe("create", start, nil)
}

// UpdateLink sends only the fields in patch. On success the server's answer
// is merged into the held link, provided the link still exists; on failure
// the collection is left as it was.
func (e *Engine) UpdateLink(ctx context.Context, id int64, patch domain.Patch) (domain.Link, error) {
	start := time.Now()

	held, ok := e.Link(id)
	if !ok {
		return domain.Link{}, e.observe("update", start, apperror.NotFound("link", id))
	}
	if patch.IsEmpty() {
		return held, e.observe("update", start, nil)
	}
	if err := patch.Validate(); err != nil {
		return domain.Link{}, e.observe("update", start, err)
	}
	if patch.Tags != nil {
		tags, err := domain.NormalizeTags(*patch.Tags)
		if err != nil {
			return domain.Link{}, e.observe("update", start, err)
		}
		patch.Tags = &tags
	}

	apiKey, err := e.apiKey(ctx)
	if err != nil {
		return domain.Link{}, e.observe("update", start, err)
	}

	server, err := e.gw.Update(ctx, apiKey, id, patch)
	if err != nil {
		return domain.Link{}, e.observe("update", start, err)
	}

	e.mu.Lock()
	i := e.indexOf(id)
	if i < 0 {
		// Deleted while the update was in flight.
		e.mu.Unlock()
		return domain.Link{}, e.observe("update", start, apperror.NotFound("link", id))
	}
	merged := domain.Merge(patch.Apply(e.links[i]), server)
	merged.ID = id
	e.links[i] = merged
	e.record(mutation{kind: mutUpdate, link: merged.Clone()})
	e.mu.Unlock()

	e.persist(ctx)
	return merged.Clone(), e.observe("update", start, nil)
}

// DeleteLink removes id once the server confirmed it, or reported it was
// already gone. Deleting an id twice is not an error.
func (e *Engine) DeleteLink(ctx context.Context, id int64) error {
	start := time.Now()

	apiKey, err := e.apiKey(ctx)
	if err != nil {
		return e.observe("delete", start, err)
	}
	if err := e.gw.Delete(ctx, apiKey, id); err != nil {
		return e.observe("delete", start, err)
	}

	if e.remove(map[int64]struct{}{id: {}}) > 0 {
		e.persist(ctx)
	}
	return e.observe("delete", start, nil)
}

// BulkDelete removes every id or none of them locally. A partial server
// failure is reported as one aggregate error and nothing is removed; the
// next reload shows what the server actually kept.
func (e *Engine) BulkDelete(ctx context.Context, ids []int64) error {
	start := time.Now()

	set := make(map[int64]struct{}, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := set[id]; dup || id == 0 {
			continue
		}
		set[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return e.observe("bulk_delete", start, nil)
	}

	apiKey, err := e.apiKey(ctx)
	if err != nil {
		return e.observe("bulk_delete", start, err)
	}
	if err := e.gw.BulkDelete(ctx, apiKey, unique); err != nil {
		return e.observe("bulk_delete", start, err)
	}

	removed := e.remove(set)
	if removed > 0 {
		e.persist(ctx)
	}
	e.logger.Info("links deleted",
		logger.Int("requested", len(unique)),
		logger.Int("removed", removed))
	return e.observe("bulk_delete", start, nil)
}

// remove drops every link whose id is in ids and returns how many went.
// The ids are journaled even when none is held, since a list answer still
// in flight may carry them.
func (e *Engine) remove(ids map[int64]struct{}) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record(mutation{kind: mutDelete, ids: ids})

	kept := make([]domain.Link, 0, len(e.links))
	for _, l := range e.links {
		if _, drop := ids[l.ID]; drop && l.ID != 0 {
			continue
		}
		kept = append(kept, l)
	}
	removed := len(e.links) - len(kept)
	e.links = kept
	return removed
}
