package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secondbrain/models"
	"secondbrain/vectorindex"
)

type stubEmbedder struct {
	queryVec   []float32
	batchCalls int
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.batchCalls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.queryVec
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return s.queryVec, nil
}

func (s *stubEmbedder) Model() string  { return "stub-embed" }
func (s *stubEmbedder) Dimension() int { return len(s.queryVec) }

type stubClassifier struct {
	decision models.RouteDecision
}

func (s *stubClassifier) Classify(_ context.Context, _ string) (models.RouteDecision, error) {
	return s.decision, nil
}

type stubGenerator struct {
	answer string
	calls  int
}

func (s *stubGenerator) Answer(_ context.Context, _, _ string) (string, error) {
	s.calls++
	return s.answer, nil
}

func newTestService(t *testing.T) (RAGService, *stubEmbedder, *stubClassifier, *stubGenerator, *vectorindex.Memory) {
	t.Helper()
	embedder := &stubEmbedder{queryVec: []float32{1, 0}}
	classifier := &stubClassifier{decision: models.RouteDecision{Intent: models.IntentQuery}}
	generator := &stubGenerator{answer: "generated answer"}
	index := vectorindex.NewMemory("test")
	require.NoError(t, index.EnsureCollection(context.Background(), 2))

	svc := NewRAGService(embedder, classifier, generator, index, RAGOptions{
		ChunkSize:       1000,
		ChunkOverlap:    200,
		DefaultK:        12,
		ScoreThreshold:  0.2,
		MaxContextChars: 4000,
		GenerationModel: "stub-chat",
	})
	return svc, embedder, classifier, generator, index
}

func TestIngestNote(t *testing.T) {
	ctx := context.Background()

	t.Run("splits a long note and persists every chunk", func(t *testing.T) {
		svc, embedder, _, _, index := newTestService(t)

		resp, err := svc.IngestNote(ctx, models.IngestRequest{
			Text:  strings.Repeat("a", 2500),
			Title: strPtr("Long note"),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, resp.ChunkCount)
		assert.Equal(t, "persisted", resp.Status)
		assert.NotEmpty(t, resp.ItemID)
		assert.Equal(t, 1, embedder.batchCalls)

		points, err := index.Scroll(ctx, 100)
		require.NoError(t, err)
		require.Len(t, points, 3)

		ids := make(map[string]bool)
		for i, p := range points {
			ids[p.ID] = true
			assert.Equal(t, resp.ItemID, p.Payload.ItemID)
			assert.Equal(t, i, p.Payload.ChunkIndex)
			assert.Equal(t, "stub-embed", p.Payload.EmbeddingModel)
			assert.NotEmpty(t, p.Payload.ContentHash)
			require.NotNil(t, p.Payload.Title)
			assert.Equal(t, "Long note", *p.Payload.Title)
		}
		assert.Len(t, ids, 3)
	})

	t.Run("re-ingesting creates new records", func(t *testing.T) {
		svc, _, _, _, index := newTestService(t)

		first, err := svc.IngestNote(ctx, models.IngestRequest{Text: "same note"})
		require.NoError(t, err)
		second, err := svc.IngestNote(ctx, models.IngestRequest{Text: "same note"})
		require.NoError(t, err)
		assert.NotEqual(t, first.ItemID, second.ItemID)

		count, err := index.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("rejects blank text", func(t *testing.T) {
		svc, _, _, _, _ := newTestService(t)

		_, err := svc.IngestNote(ctx, models.IngestRequest{Text: "   \n "})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})
}

func TestChat(t *testing.T) {
	ctx := context.Background()

	t.Run("answers from retrieved notes", func(t *testing.T) {
		svc, _, _, generator, _ := newTestService(t)
		_, err := svc.IngestNote(ctx, models.IngestRequest{Text: "the door code is 4412", Title: strPtr("Office")})
		require.NoError(t, err)

		resp, err := svc.Chat(ctx, models.ChatRequest{Query: "what is the door code?"})
		require.NoError(t, err)
		require.NotNil(t, resp.Answer)
		assert.Equal(t, "generated answer", *resp.Answer)
		assert.Equal(t, "stub-chat", resp.Model)
		assert.Equal(t, 1, generator.calls)
		require.Len(t, resp.Notes, 1)
	})

	t.Run("empty store returns the canned answer without generating", func(t *testing.T) {
		svc, _, _, generator, _ := newTestService(t)

		resp, err := svc.Chat(ctx, models.ChatRequest{Query: "anything"})
		require.NoError(t, err)
		require.NotNil(t, resp.Answer)
		assert.Equal(t, NoRelevantNotes, *resp.Answer)
		assert.Equal(t, 0, generator.calls)
		assert.Empty(t, resp.Notes)
	})

	t.Run("notes mode skips generation entirely", func(t *testing.T) {
		svc, _, _, generator, _ := newTestService(t)
		_, err := svc.IngestNote(ctx, models.IngestRequest{Text: "some note"})
		require.NoError(t, err)

		resp, err := svc.Chat(ctx, models.ChatRequest{Query: "some note", Mode: "notes"})
		require.NoError(t, err)
		assert.Nil(t, resp.Answer)
		assert.Equal(t, 0, generator.calls)
		require.Len(t, resp.Notes, 1)
	})

	t.Run("rejects blank query", func(t *testing.T) {
		svc, _, _, _, _ := newTestService(t)
		_, err := svc.Chat(ctx, models.ChatRequest{Query: ""})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})
}

func TestRoute(t *testing.T) {
	ctx := context.Background()

	t.Run("ingest intent stores the extracted note", func(t *testing.T) {
		svc, _, classifier, _, index := newTestService(t)
		classifier.decision = models.RouteDecision{
			Intent: models.IntentIngest,
			Title:  strPtr("Groceries"),
			Text:   strPtr("buy milk and eggs"),
		}

		resp, err := svc.Route(ctx, models.RouteRequest{Text: "remember to buy milk and eggs"})
		require.NoError(t, err)
		assert.Equal(t, models.IntentIngest, resp.Action)

		ingest, ok := resp.Result.(*models.IngestResponse)
		require.True(t, ok)
		assert.Equal(t, 1, ingest.ChunkCount)

		points, err := index.Scroll(ctx, 10)
		require.NoError(t, err)
		require.Len(t, points, 1)
		assert.Equal(t, "buy milk and eggs", points[0].Payload.Text)
		require.NotNil(t, points[0].Payload.Title)
		assert.Equal(t, "Groceries", *points[0].Payload.Title)
	})

	t.Run("ingest intent without extracted text stores the raw input", func(t *testing.T) {
		svc, _, classifier, _, index := newTestService(t)
		classifier.decision = models.RouteDecision{Intent: models.IntentIngest}

		_, err := svc.Route(ctx, models.RouteRequest{Text: "  note this down  "})
		require.NoError(t, err)

		points, err := index.Scroll(ctx, 10)
		require.NoError(t, err)
		require.Len(t, points, 1)
		assert.Equal(t, "note this down", points[0].Payload.Text)
		assert.Nil(t, points[0].Payload.Title)
	})

	t.Run("query intent delegates to chat", func(t *testing.T) {
		svc, _, classifier, generator, _ := newTestService(t)
		classifier.decision = models.RouteDecision{Intent: models.IntentQuery}
		_, err := svc.IngestNote(ctx, models.IngestRequest{Text: "wifi password is hunter2"})
		require.NoError(t, err)

		resp, err := svc.Route(ctx, models.RouteRequest{Text: "what is the wifi password?"})
		require.NoError(t, err)
		assert.Equal(t, models.IntentQuery, resp.Action)

		chat, ok := resp.Result.(*models.ChatResponse)
		require.True(t, ok)
		require.NotNil(t, chat.Answer)
		assert.Equal(t, "generated answer", *chat.Answer)
		assert.Equal(t, 1, generator.calls)
	})

	t.Run("rejects blank input", func(t *testing.T) {
		svc, _, _, _, _ := newTestService(t)
		_, err := svc.Route(ctx, models.RouteRequest{Text: " "})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("orders hits by similarity and applies the threshold", func(t *testing.T) {
		svc, _, _, _, index := newTestService(t)

		points := []models.Point{
			{ID: "far", Vector: []float32{0, 1}, Payload: models.Payload{ItemID: "far", Text: "far"}},
			{ID: "close", Vector: []float32{1, 0}, Payload: models.Payload{ItemID: "close", Text: "close"}},
			{ID: "mid", Vector: []float32{0.6, 0.8}, Payload: models.Payload{ItemID: "mid", Text: "mid"}},
		}
		require.NoError(t, index.Upsert(ctx, points))

		hits, err := svc.Search(ctx, "close", 10)
		require.NoError(t, err)
		require.Len(t, hits, 2) // the orthogonal vector scores 0, under the 0.2 floor
		assert.Equal(t, "close", hits[0].ItemID)
		assert.Equal(t, "mid", hits[1].ItemID)
		assert.Greater(t, hits[0].Score, hits[1].Score)
	})

	t.Run("rejects blank query", func(t *testing.T) {
		svc, _, _, _, _ := newTestService(t)
		_, err := svc.Search(ctx, "  ", 10)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})
}

func TestListNotes(t *testing.T) {
	ctx := context.Background()

	t.Run("collapses chunks into one preview per note", func(t *testing.T) {
		svc, _, _, _, _ := newTestService(t)

		first, err := svc.IngestNote(ctx, models.IngestRequest{Text: strings.Repeat("a", 2500), Title: strPtr("Big")})
		require.NoError(t, err)
		second, err := svc.IngestNote(ctx, models.IngestRequest{Text: "tiny"})
		require.NoError(t, err)

		previews, err := svc.ListNotes(ctx, 20, 0)
		require.NoError(t, err)
		require.Len(t, previews, 2)

		assert.Equal(t, first.ItemID, previews[0].ItemID)
		assert.Equal(t, 3, previews[0].ChunkCount)
		assert.Equal(t, 180, len([]rune(previews[0].Preview)))

		assert.Equal(t, second.ItemID, previews[1].ItemID)
		assert.Equal(t, 1, previews[1].ChunkCount)
		assert.Equal(t, "tiny", previews[1].Preview)
	})

	t.Run("offset skips whole notes", func(t *testing.T) {
		svc, _, _, _, _ := newTestService(t)
		_, err := svc.IngestNote(ctx, models.IngestRequest{Text: "first"})
		require.NoError(t, err)
		second, err := svc.IngestNote(ctx, models.IngestRequest{Text: "second"})
		require.NoError(t, err)

		previews, err := svc.ListNotes(ctx, 20, 1)
		require.NoError(t, err)
		require.Len(t, previews, 1)
		assert.Equal(t, second.ItemID, previews[0].ItemID)
	})
}

func TestEmbedProbe(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	dims, err := svc.EmbedProbe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, dims)
}
