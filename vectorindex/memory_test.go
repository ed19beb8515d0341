package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secondbrain/models"
)

func point(id string, vector []float32, source string) models.Point {
	p := models.Point{ID: id, Vector: vector, Payload: models.Payload{ItemID: id, Text: id}}
	if source != "" {
		p.Payload.Metadata = map[string]any{"source_file": source}
	}
	return p
}

func TestMemoryIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects a non-positive dimension", func(t *testing.T) {
		m := NewMemory("notes")
		assert.Error(t, m.EnsureCollection(ctx, 0))
	})

	t.Run("upsert replaces points with the same id", func(t *testing.T) {
		m := NewMemory("notes")
		require.NoError(t, m.EnsureCollection(ctx, 2))

		require.NoError(t, m.Upsert(ctx, []models.Point{point("a", []float32{1, 0}, "")}))
		updated := point("a", []float32{0, 1}, "")
		updated.Payload.Text = "updated"
		require.NoError(t, m.Upsert(ctx, []models.Point{updated}))

		count, err := m.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		points, err := m.Scroll(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, "updated", points[0].Payload.Text)
	})

	t.Run("upsert checks the vector dimension", func(t *testing.T) {
		m := NewMemory("notes")
		require.NoError(t, m.EnsureCollection(ctx, 2))
		assert.Error(t, m.Upsert(ctx, []models.Point{point("a", []float32{1, 0, 0}, "")}))
	})

	t.Run("search ranks by cosine similarity and drops sub-threshold hits", func(t *testing.T) {
		m := NewMemory("notes")
		require.NoError(t, m.EnsureCollection(ctx, 2))
		require.NoError(t, m.Upsert(ctx, []models.Point{
			point("orthogonal", []float32{0, 1}, ""),
			point("exact", []float32{1, 0}, ""),
			point("angled", []float32{0.6, 0.8}, ""),
		}))

		hits, err := m.Search(ctx, []float32{1, 0}, 10, 0.2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "exact", hits[0].Payload.ItemID)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
		assert.Equal(t, "angled", hits[1].Payload.ItemID)
		assert.InDelta(t, 0.6, hits[1].Score, 1e-6)
	})

	t.Run("search honors the limit", func(t *testing.T) {
		m := NewMemory("notes")
		require.NoError(t, m.EnsureCollection(ctx, 2))
		require.NoError(t, m.Upsert(ctx, []models.Point{
			point("a", []float32{1, 0}, ""),
			point("b", []float32{1, 0}, ""),
			point("c", []float32{1, 0}, ""),
		}))

		hits, err := m.Search(ctx, []float32{1, 0}, 2, 0)
		require.NoError(t, err)
		assert.Len(t, hits, 2)
	})

	t.Run("equal scores keep insertion order", func(t *testing.T) {
		m := NewMemory("notes")
		require.NoError(t, m.EnsureCollection(ctx, 2))
		require.NoError(t, m.Upsert(ctx, []models.Point{
			point("first", []float32{1, 0}, ""),
			point("second", []float32{1, 0}, ""),
		}))

		hits, err := m.Search(ctx, []float32{1, 0}, 10, 0)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "first", hits[0].Payload.ItemID)
		assert.Equal(t, "second", hits[1].Payload.ItemID)
	})

	t.Run("delete by source removes only matching points", func(t *testing.T) {
		m := NewMemory("notes")
		require.NoError(t, m.EnsureCollection(ctx, 2))
		require.NoError(t, m.Upsert(ctx, []models.Point{
			point("a", []float32{1, 0}, "notes/a.md"),
			point("b", []float32{0, 1}, "notes/b.md"),
			point("c", []float32{1, 0}, "notes/a.md"),
		}))

		require.NoError(t, m.DeleteBySource(ctx, "notes/a.md"))

		points, err := m.Scroll(ctx, 10)
		require.NoError(t, err)
		require.Len(t, points, 1)
		assert.Equal(t, "b", points[0].ID)
	})

	t.Run("scroll caps at the limit", func(t *testing.T) {
		m := NewMemory("notes")
		require.NoError(t, m.EnsureCollection(ctx, 2))
		require.NoError(t, m.Upsert(ctx, []models.Point{
			point("a", []float32{1, 0}, ""),
			point("b", []float32{0, 1}, ""),
		}))

		points, err := m.Scroll(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, points, 1)
	})

	t.Run("collections reports the configured name", func(t *testing.T) {
		m := NewMemory("notes")
		names, err := m.Collections(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"notes"}, names)
	})
}
