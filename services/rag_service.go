package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"secondbrain/models"
	"secondbrain/vectorindex"
)

// RAGService defines the operations the HTTP layer exposes.
type RAGService interface {
	IngestNote(ctx context.Context, req models.IngestRequest) (*models.IngestResponse, error)
	Search(ctx context.Context, query string, k int) ([]models.SearchHit, error)
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	Route(ctx context.Context, req models.RouteRequest) (*models.RouteResponse, error)
	ListNotes(ctx context.Context, limit, offset int) ([]models.NotePreview, error)
	TotalChunks(ctx context.Context) (int, error)
	EmbedProbe(ctx context.Context) (int, error)
}

// RAGOptions carries the pipeline tunables, passed in explicitly instead of
// read from globals.
type RAGOptions struct {
	ChunkSize       int
	ChunkOverlap    int
	DefaultK        int
	ScoreThreshold  float64
	MaxContextChars int
	GenerationModel string
}

// ragServiceImpl holds the long-lived collaborators it needs to do its job.
// None of them are mutated after construction, so requests share them
// without locking.
type ragServiceImpl struct {
	embedder   Embedder
	classifier Classifier
	generator  Generator
	retrieval  *RetrievalService
	index      vectorindex.Index
	opts       RAGOptions
}

// NewRAGService creates a RAG service instance from its collaborators.
func NewRAGService(embedder Embedder, classifier Classifier, generator Generator, index vectorindex.Index, opts RAGOptions) RAGService {
	return &ragServiceImpl{
		embedder:   embedder,
		classifier: classifier,
		generator:  generator,
		retrieval:  NewRetrievalService(embedder, index),
		index:      index,
		opts:       opts,
	}
}

// IngestNote chunks, embeds and persists one note. Every chunk gets a fresh
// random point ID, so re-ingesting identical content creates new records;
// the content hash rides along in the payload for dedup auditing.
func (r *ragServiceImpl) IngestNote(ctx context.Context, req models.IngestRequest) (*models.IngestResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, NewValidationError("text required")
	}
	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	itemID := uuid.New().String()
	hash := ContentHash(text, metadata)
	chunks, err := ChunkText(text, r.opts.ChunkSize, r.opts.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	points := make([]models.Point, len(chunks))
	for i, c := range chunks {
		points[i] = models.Point{
			ID:     uuid.New().String(),
			Vector: vectors[i],
			Payload: models.Payload{
				ItemID:         itemID,
				Title:          req.Title,
				ChunkIndex:     c.Index,
				Text:           c.Text,
				Tokens:         c.Tokens,
				Metadata:       metadata,
				EmbeddingModel: r.embedder.Model(),
				ContentHash:    hash,
			},
		}
	}
	if err := r.index.Upsert(ctx, points); err != nil {
		return nil, &IndexError{Op: "upsert", Err: err}
	}

	logrus.Infof("SERVICE: ingested note %s as %d chunks", itemID, len(points))
	return &models.IngestResponse{ItemID: itemID, ChunkCount: len(points), Status: "persisted"}, nil
}

// Search returns the flat ranked hit list for a query.
func (r *ragServiceImpl) Search(ctx context.Context, query string, k int) ([]models.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, NewValidationError("q required")
	}
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := r.index.Search(ctx, vector, r.clampK(k), r.opts.ScoreThreshold)
	if err != nil {
		return nil, &IndexError{Op: "search", Err: err}
	}
	out := make([]models.SearchHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, models.SearchHit{
			Score:      h.Score,
			ItemID:     h.Payload.ItemID,
			ChunkIndex: h.Payload.ChunkIndex,
			Title:      h.Payload.Title,
			Text:       h.Payload.Text,
		})
	}
	return out, nil
}

// Chat runs the query path: retrieve, assemble context, generate. An empty
// context short-circuits to the canned answer without invoking generation.
func (r *ragServiceImpl) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, NewValidationError("query required")
	}

	items, err := r.retrieval.Retrieve(ctx, query, r.clampK(req.K), r.opts.ScoreThreshold)
	if err != nil {
		return nil, err
	}

	if req.Mode == "notes" {
		return &models.ChatResponse{Answer: nil, Notes: items}, nil
	}

	notesContext := BuildContext(items, r.opts.MaxContextChars)
	if notesContext == "" {
		answer := NoRelevantNotes
		return &models.ChatResponse{Answer: &answer, Notes: items}, nil
	}

	answer, err := r.generator.Answer(ctx, query, notesContext)
	if err != nil {
		return nil, err
	}
	return &models.ChatResponse{Answer: &answer, Notes: items, Model: r.opts.GenerationModel}, nil
}

// Route classifies free text and dispatches to exactly one of the two
// terminal flows. A classification transport failure propagates; malformed
// classifier content was already coerced to the query intent downstream.
func (r *ragServiceImpl) Route(ctx context.Context, req models.RouteRequest) (*models.RouteResponse, error) {
	input := strings.TrimSpace(req.Text)
	if input == "" {
		return nil, NewValidationError("text required")
	}

	decision, err := r.classifier.Classify(ctx, input)
	if err != nil {
		return nil, err
	}

	if decision.Intent == models.IntentIngest {
		text := input
		if decision.Text != nil && *decision.Text != "" {
			text = *decision.Text
		}
		result, err := r.IngestNote(ctx, models.IngestRequest{Text: text, Title: decision.Title})
		if err != nil {
			return nil, err
		}
		return &models.RouteResponse{Action: models.IntentIngest, Result: result}, nil
	}

	result, err := r.Chat(ctx, models.ChatRequest{Query: input, K: req.K})
	if err != nil {
		return nil, err
	}
	return &models.RouteResponse{Action: models.IntentQuery, Result: result}, nil
}

// ListNotes scrolls the index and reduces chunks to per-item previews,
// keyed on the lowest chunk index seen.
func (r *ragServiceImpl) ListNotes(ctx context.Context, limit, offset int) ([]models.NotePreview, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	points, err := r.index.Scroll(ctx, limit+offset)
	if err != nil {
		return nil, &IndexError{Op: "scroll", Err: err}
	}

	order := make([]string, 0)
	best := make(map[string]models.Point)
	counts := make(map[string]int)
	for _, p := range points {
		id := p.Payload.ItemID
		if id == "" {
			continue
		}
		counts[id]++
		prev, seen := best[id]
		if !seen {
			order = append(order, id)
			best[id] = p
			continue
		}
		if p.Payload.ChunkIndex < prev.Payload.ChunkIndex {
			best[id] = p
		}
	}

	if offset > len(order) {
		offset = len(order)
	}
	end := offset + limit
	if end > len(order) {
		end = len(order)
	}

	previews := make([]models.NotePreview, 0, end-offset)
	for _, id := range order[offset:end] {
		p := best[id]
		previews = append(previews, models.NotePreview{
			ItemID:     id,
			Title:      p.Payload.Title,
			Preview:    truncateRunes(p.Payload.Text, 180),
			ChunkCount: counts[id],
		})
	}
	return previews, nil
}

// TotalChunks counts all stored chunks.
func (r *ragServiceImpl) TotalChunks(ctx context.Context) (int, error) {
	count, err := r.index.Count(ctx)
	if err != nil {
		return 0, &IndexError{Op: "count", Err: err}
	}
	return count, nil
}

// EmbedProbe embeds a fixed probe text and reports the vector dimension,
// backing the debug endpoint.
func (r *ragServiceImpl) EmbedProbe(ctx context.Context) (int, error) {
	vector, err := r.embedder.EmbedQuery(ctx, "ping")
	if err != nil {
		return 0, err
	}
	return len(vector), nil
}

func (r *ragServiceImpl) clampK(k int) int {
	if k <= 0 {
		k = r.opts.DefaultK
	}
	if k < 1 {
		k = 1
	}
	if k > 50 {
		k = 50
	}
	return k
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
