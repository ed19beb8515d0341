package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"secondbrain/models"
)

// Memory is a brute-force cosine-similarity store kept in process memory.
// It backs local runs without a vector database and doubles as the store
// used by the service tests.
type Memory struct {
	mu        sync.RWMutex
	name      string
	dimension int
	points    []models.Point
}

// NewMemory creates an empty in-memory index.
func NewMemory(collection string) *Memory {
	return &Memory{name: collection}
}

func (m *Memory) EnsureCollection(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimension = dimension
	return nil
}

func (m *Memory) Upsert(_ context.Context, points []models.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		if m.dimension > 0 && len(p.Vector) != m.dimension {
			return fmt.Errorf("vector dimension mismatch: want %d, got %d", m.dimension, len(p.Vector))
		}
	}
	for _, p := range points {
		replaced := false
		for i := range m.points {
			if m.points[i].ID == p.ID {
				m.points[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			m.points = append(m.points, p)
		}
	}
	return nil
}

func (m *Memory) Search(_ context.Context, vector []float32, limit int, scoreThreshold float64) ([]models.Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hits := make([]models.Hit, 0, len(m.points))
	for _, p := range m.points {
		score := cosine(p.Vector, vector)
		if score < scoreThreshold {
			continue
		}
		hits = append(hits, models.Hit{Score: score, Payload: p.Payload})
	}
	// Stable so equal scores keep insertion order.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *Memory) Scroll(_ context.Context, limit int) ([]models.Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.points)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]models.Point, n)
	copy(out, m.points[:n])
	return out, nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points), nil
}

func (m *Memory) Collections(_ context.Context) ([]string, error) {
	return []string{m.name}, nil
}

func (m *Memory) DeleteBySource(_ context.Context, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.points[:0]
	for _, p := range m.points {
		if s, _ := p.Payload.Metadata["source_file"].(string); s == source {
			continue
		}
		kept = append(kept, p)
	}
	m.points = kept
	return nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
