package scheduler

import (
	"context"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/engine"
)

// EngineShelf adapts the sync engine to Shelf.
type EngineShelf struct {
	Engine *engine.Engine
}

func (s EngineShelf) CreateLink(ctx context.Context, d domain.Draft) (domain.Link, error) {
	return s.Engine.CreateLink(ctx, d)
}

func (s EngineShelf) Links() []domain.Link {
	return s.Engine.Snapshot().Links
}
