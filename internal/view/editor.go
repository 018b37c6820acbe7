package view

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
	"github.com/MrSnakeDoc/linkshelf/internal/domain"
)

type EditState int

const (
	Viewing EditState = iota
	Editing
	Saving
)

func (s EditState) String() string {
	switch s {
	case Editing:
		return "editing"
	case Saving:
		return "saving"
	}
	return "viewing"
}

func (s EditState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session is the transient edit state of one row.
type Session struct {
	LinkID   int64        `json:"linkId"`
	Original domain.Link  `json:"original"`
	Draft    domain.Draft `json:"draft"`
	State    EditState    `json:"state"`
	// Err is the message of the last failed save, kept until the next one.
	Err string `json:"error,omitempty"`
}

func (s *Session) clone() Session {
	out := *s
	out.Original = s.Original.Clone()
	out.Draft = cloneDraft(s.Draft)
	return out
}

// Saver applies a patch to a link. The engine implements it.
type Saver interface {
	UpdateLink(ctx context.Context, id int64, patch domain.Patch) (domain.Link, error)
}

// Editor tracks edit sessions. A row without a session is viewing.
type Editor struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewEditor() *Editor {
	return &Editor{sessions: make(map[int64]*Session)}
}

// Begin snapshots link and opens a session. Beginning again on a row
// already being edited keeps the existing draft.
func (ed *Editor) Begin(link domain.Link) (Session, error) {
	ed.mu.Lock()
	defer ed.mu.Unlock()

	if s, ok := ed.sessions[link.ID]; ok {
		if s.State == Saving {
			return Session{}, busy(link.ID)
		}
		return s.clone(), nil
	}

	s := &Session{
		LinkID:   link.ID,
		Original: link.Clone(),
		Draft:    domain.DraftOf(link),
		State:    Editing,
	}
	ed.sessions[link.ID] = s
	return s.clone(), nil
}

// SetDraft replaces the draft of an open session.
func (ed *Editor) SetDraft(id int64, draft domain.Draft) (Session, error) {
	ed.mu.Lock()
	defer ed.mu.Unlock()

	s, err := ed.editable(id)
	if err != nil {
		return Session{}, err
	}
	s.Draft = cloneDraft(draft)
	return s.clone(), nil
}

// Cancel discards the draft and returns the snapshot taken at Begin.
func (ed *Editor) Cancel(id int64) (domain.Link, error) {
	ed.mu.Lock()
	defer ed.mu.Unlock()

	s, err := ed.editable(id)
	if err != nil {
		return domain.Link{}, err
	}
	delete(ed.sessions, id)
	return s.Original.Clone(), nil
}

// Save sends the changes between the snapshot and the draft through saver.
// On success the session closes. On failure the session returns to editing
// with the draft intact and the error recorded.
func (ed *Editor) Save(ctx context.Context, id int64, saver Saver) (domain.Link, error) {
	ed.mu.Lock()
	s, err := ed.editable(id)
	if err != nil {
		ed.mu.Unlock()
		return domain.Link{}, err
	}
	s.State = Saving
	original := s.Original.Clone()
	draft := cloneDraft(s.Draft)
	ed.mu.Unlock()

	link, err := save(ctx, id, original, draft, saver)

	ed.mu.Lock()
	defer ed.mu.Unlock()

	if err != nil {
		if s, ok := ed.sessions[id]; ok {
			s.State = Editing
			s.Err = apperror.Message(err)
		}
		return domain.Link{}, err
	}
	delete(ed.sessions, id)
	return link, nil
}

func save(ctx context.Context, id int64, original domain.Link, draft domain.Draft, saver Saver) (domain.Link, error) {
	normalized, err := draft.Normalize()
	if err != nil {
		return domain.Link{}, err
	}
	if err := normalized.Validate(); err != nil {
		return domain.Link{}, err
	}
	patch, err := domain.Diff(original, normalized)
	if err != nil {
		return domain.Link{}, err
	}
	return saver.UpdateLink(ctx, id, patch)
}

// Session returns a copy of the session for id.
func (ed *Editor) Session(id int64) (Session, bool) {
	ed.mu.Lock()
	defer ed.mu.Unlock()

	s, ok := ed.sessions[id]
	if !ok {
		return Session{}, false
	}
	return s.clone(), true
}

// State reports the edit state of a row.
func (ed *Editor) State(id int64) EditState {
	ed.mu.Lock()
	defer ed.mu.Unlock()

	if s, ok := ed.sessions[id]; ok {
		return s.State
	}
	return Viewing
}

// Sessions returns every open session ordered by link id.
func (ed *Editor) Sessions() []Session {
	ed.mu.Lock()
	defer ed.mu.Unlock()

	out := make([]Session, 0, len(ed.sessions))
	for _, s := range ed.sessions {
		out = append(out, s.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LinkID < out[j].LinkID })
	return out
}

// Prune drops sessions whose link no longer exists. Sessions being saved
// are left alone; their save resolves them.
func (ed *Editor) Prune(exists func(id int64) bool) {
	ed.mu.Lock()
	defer ed.mu.Unlock()

	for id, s := range ed.sessions {
		if s.State != Saving && !exists(id) {
			delete(ed.sessions, id)
		}
	}
}

// editable must be called with mu held.
func (ed *Editor) editable(id int64) (*Session, error) {
	s, ok := ed.sessions[id]
	if !ok {
		return nil, apperror.Conflict(fmt.Sprintf("link %d is not being edited", id))
	}
	if s.State == Saving {
		return nil, busy(id)
	}
	return s, nil
}

func busy(id int64) error {
	return apperror.Conflict(fmt.Sprintf("link %d is being saved", id))
}

func cloneDraft(d domain.Draft) domain.Draft {
	out := d
	if d.Description != nil {
		v := *d.Description
		out.Description = &v
	}
	if d.Notes != nil {
		v := *d.Notes
		out.Notes = &v
	}
	if d.Tags != nil {
		out.Tags = append([]string(nil), d.Tags...)
	}
	return out
}
