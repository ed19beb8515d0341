package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"secondbrain/models"
	"secondbrain/vectorindex"
)

// RetrievalService turns a natural-language query into ranked aggregated
// items: embed the query, search the index, group hits by note.
type RetrievalService struct {
	embedder Embedder
	index    vectorindex.Index
}

// NewRetrievalService creates a retrieval aggregator over the given
// embedder and index gateway.
func NewRetrievalService(embedder Embedder, index vectorindex.Index) *RetrievalService {
	return &RetrievalService{embedder: embedder, index: index}
}

// Retrieve embeds the query, searches with the given limit and threshold
// and aggregates the hits per item. Output is deterministic for a
// deterministic search response.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, k int, scoreThreshold float64) ([]models.AggregatedItem, error) {
	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := s.index.Search(ctx, vector, k, scoreThreshold)
	if err != nil {
		return nil, &IndexError{Op: "search", Err: err}
	}
	return AggregateHits(hits), nil
}

// AggregateHits groups raw hits by item_id, discarding hits without one.
// Chunks within an item and the items themselves are sorted by descending
// score; both sorts are stable, so score ties keep the order the search
// produced.
func AggregateHits(hits []models.Hit) []models.AggregatedItem {
	items := make([]models.AggregatedItem, 0)
	position := make(map[string]int)
	for _, h := range hits {
		p := h.Payload
		if p.ItemID == "" {
			continue
		}
		idx, seen := position[p.ItemID]
		if !seen {
			idx = len(items)
			position[p.ItemID] = idx
			items = append(items, models.AggregatedItem{
				ItemID:   p.ItemID,
				Title:    p.Title,
				TopScore: h.Score,
			})
		}
		items[idx].Chunks = append(items[idx].Chunks, models.ScoredChunk{
			Text:       p.Text,
			ChunkIndex: p.ChunkIndex,
			Score:      h.Score,
		})
		if h.Score > items[idx].TopScore {
			items[idx].TopScore = h.Score
		}
	}
	for i := range items {
		chunks := items[i].Chunks
		sort.SliceStable(chunks, func(a, b int) bool { return chunks[a].Score > chunks[b].Score })
	}
	sort.SliceStable(items, func(a, b int) bool { return items[a].TopScore > items[b].TopScore })
	return items
}

// BuildContext flattens aggregated items into one bounded text blob for
// prompting. Items and chunks are visited in their given order; assembly
// stops at the first block that would push past the budget, so the result
// never exceeds maxChars.
func BuildContext(items []models.AggregatedItem, maxChars int) string {
	var out strings.Builder
	used := 0
	for _, it := range items {
		title := "(untitled)"
		if it.Title != nil {
			title = *it.Title
		}
		for _, c := range it.Chunks {
			block := fmt.Sprintf("Title: %s | Chunk %d | Score %.3f\n%s\n---\n", title, c.ChunkIndex, c.Score, c.Text)
			length := utf8.RuneCountInString(block)
			if used+length > maxChars {
				return out.String()
			}
			out.WriteString(block)
			used += length
		}
	}
	return out.String()
}
