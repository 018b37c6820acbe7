package engine

import "github.com/MrSnakeDoc/linkshelf/internal/domain"

type mutationKind int

const (
	mutCreate mutationKind = iota
	mutUpdate
	mutDelete
)

// mutation is a server-confirmed change applied while a list request was
// outstanding. The list answer may predate it, so it is replayed on top.
type mutation struct {
	kind mutationKind
	link domain.Link
	ids  map[int64]struct{}
}

// record must be called with mu held. Nothing is kept while no list request
// is outstanding.
func (e *Engine) record(m mutation) {
	if e.pending == 0 {
		return
	}
	e.journal = append(e.journal, m)
}

// replay applies the journal, in completion order, to links fetched before
// some of those mutations finished, then empties it. Must be called with mu
// held.
func (e *Engine) replay(links []domain.Link) []domain.Link {
	for _, m := range e.journal {
		switch m.kind {
		case mutCreate:
			next := make([]domain.Link, 0, len(links)+1)
			next = append(next, m.link.Clone())
			for _, l := range links {
				if l.ID != m.link.ID {
					next = append(next, l)
				}
			}
			links = next
		case mutUpdate:
			for i := range links {
				if links[i].ID == m.link.ID {
					links[i] = m.link.Clone()
				}
			}
		case mutDelete:
			kept := make([]domain.Link, 0, len(links))
			for _, l := range links {
				if _, drop := m.ids[l.ID]; drop && l.ID != 0 {
					continue
				}
				kept = append(kept, l)
			}
			links = kept
		}
	}
	e.journal = nil
	return links
}
