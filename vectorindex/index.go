// Package vectorindex wraps the external vector index service behind a
// narrow gateway interface. Backends exist for Qdrant (REST), Chroma and an
// in-process memory store used by tests and local runs.
package vectorindex

import (
	"context"

	"secondbrain/models"
)

// Index is the collection-scoped contract the core pipeline depends on.
type Index interface {
	// EnsureCollection checks for the collection and creates it only if
	// absent. Safe to call at every process startup.
	EnsureCollection(ctx context.Context, dimension int) error
	// Upsert inserts or overwrites the given points by their ID as one
	// batch; partial-success semantics are the backend's.
	Upsert(ctx context.Context, points []models.Point) error
	// Search returns at most limit hits with score >= scoreThreshold,
	// ordered by descending score as the backend ranks them.
	Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64) ([]models.Hit, error)
	// Scroll enumerates stored points without relevance ranking.
	Scroll(ctx context.Context, limit int) ([]models.Point, error)
	// Count reports the number of stored points.
	Count(ctx context.Context) (int, error)
	// Collections lists collection names, used by the health surface.
	Collections(ctx context.Context) ([]string, error)
	// DeleteBySource removes every point whose metadata source_file equals
	// source. Used only by the file indexer when re-ingesting.
	DeleteBySource(ctx context.Context, source string) error
}
